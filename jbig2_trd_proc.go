// Copyright 2026 肖其顿 (XIAO QI DUN)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jbig2dec

import "fmt"

// TextIntDecoders 文本区域算术整数解码器组, 在符号字典的聚合解码中跨实例共享
type TextIntDecoders struct {
	IADT  *ArithIntDecoder
	IAFS  *ArithIntDecoder
	IADS  *ArithIntDecoder
	IAIT  *ArithIntDecoder
	IARI  *ArithIntDecoder
	IARDW *ArithIntDecoder
	IARDH *ArithIntDecoder
	IARDX *ArithIntDecoder
	IARDY *ArithIntDecoder
	IAID  *ArithIaidDecoder
}

// NewTextIntDecoders 创建文本区域算术整数解码器组
// 入参: codeLen 符号编码位数
// 返回: *TextIntDecoders 解码器组
func NewTextIntDecoders(codeLen uint8) *TextIntDecoders {
	return &TextIntDecoders{
		IADT:  NewArithIntDecoder(),
		IAFS:  NewArithIntDecoder(),
		IADS:  NewArithIntDecoder(),
		IAIT:  NewArithIntDecoder(),
		IARI:  NewArithIntDecoder(),
		IARDW: NewArithIntDecoder(),
		IARDH: NewArithIntDecoder(),
		IARDX: NewArithIntDecoder(),
		IARDY: NewArithIntDecoder(),
		IAID:  NewArithIaidDecoder(codeLen),
	}
}

// symbolCodeLen 计算ceil(log2(n))
// 入参: n 符号数量
// 返回: uint8 位数
func symbolCodeLen(n uint32) uint8 {
	var l uint8
	for l < 32 && uint64(1)<<l < uint64(n) {
		l++
	}
	return l
}

// TRDProc 文本区域解码过程(6.4)
type TRDProc struct {
	SBHUFF         bool
	SBREFINE       bool
	SBRTEMPLATE    uint8
	TRANSPOSED     bool
	SBDEFPIXEL     bool
	SBDSOFFSET     int32
	SBW            uint32
	SBH            uint32
	SBNUMINSTANCES uint32
	LOGSBSTRIPS    uint8
	SBSYMCODELEN   uint8
	SBSYMCODES     *HuffmanTable
	SBSYMS         []*Image
	SBCOMBOP       ComposeOp
	REFCORNER      Corner
	SBHUFFFS       *HuffmanTable
	SBHUFFDS       *HuffmanTable
	SBHUFFDT       *HuffmanTable
	SBHUFFRDW      *HuffmanTable
	SBHUFFRDH      *HuffmanTable
	SBHUFFRDX      *HuffmanTable
	SBHUFFRDY      *HuffmanTable
	SBHUFFRSIZE    *HuffmanTable
	SBRAT          [4]int8
	MaxPixels      int64
}

// NewTRDProc 创建文本区域解码过程
// 返回: *TRDProc 解码过程对象
func NewTRDProc() *TRDProc {
	return &TRDProc{}
}

// refinementDeltas 单个实例的细化参数
type refinementDeltas struct {
	rdw, rdh, rdx, rdy int32
}

// textSource 文本区域各字段的取值来源
type textSource interface {
	stripT() (int32, error)
	firstS() (int32, error)
	deltaS() (int32, bool, error)
	curT(logStrips uint8) (int32, error)
	symbolID() (uint32, error)
	refine() (bool, error)
	deltas() (refinementDeltas, error)
	refineBitmap(grrd *GRRDProc, grContexts []ArithCtx) (*Image, error)
}

// DecodeArith 算术解码文本区域
// 入参: ad 算术解码器, grContexts 细化上下文, ids 整数解码器组
// 返回: *Image 区域位图, error 错误信息
func (t *TRDProc) DecodeArith(ad *ArithDecoder, grContexts []ArithCtx, ids *TextIntDecoders) (*Image, error) {
	return t.decode(&arithTextSource{ad: ad, ids: ids}, grContexts)
}

// DecodeHuffman 霍夫曼解码文本区域
// 入参: stream 位流, grContexts 细化上下文
// 返回: *Image 区域位图, error 错误信息
func (t *TRDProc) DecodeHuffman(stream *BitStream, grContexts []ArithCtx) (*Image, error) {
	for _, tbl := range []*HuffmanTable{t.SBHUFFFS, t.SBHUFFDS, t.SBHUFFDT} {
		if tbl == nil {
			return nil, wrapf(ErrMalformedTextRegion, "missing huffman table")
		}
	}
	if t.SBREFINE {
		for _, tbl := range []*HuffmanTable{t.SBHUFFRDW, t.SBHUFFRDH, t.SBHUFFRDX, t.SBHUFFRDY, t.SBHUFFRSIZE} {
			if tbl == nil {
				return nil, wrapf(ErrMalformedTextRegion, "missing refinement huffman table")
			}
		}
	}
	return t.decode(&huffmanTextSource{t: t, stream: stream, dec: NewHuffmanDecoder(stream)}, grContexts)
}

// decode 6.4.5的解码流程
func (t *TRDProc) decode(src textSource, grContexts []ArithCtx) (*Image, error) {
	reg, err := newRegionBitmap(t.SBW, t.SBH, t.MaxPixels)
	if err != nil {
		return nil, err
	}
	reg.Fill(t.SBDEFPIXEL)
	strips := int64(1) << t.LOGSBSTRIPS
	dt, err := src.stripT()
	if err != nil {
		return nil, wrapErr(ErrMalformedTextRegion, err, "initial strip T")
	}
	stripT := -int64(dt) * strips
	var firstS int64
	var instances uint32
	for instances < t.SBNUMINSTANCES {
		dt, err := src.stripT()
		if err != nil {
			return nil, wrapErr(ErrMalformedTextRegion, err, "strip delta T")
		}
		stripT += int64(dt) * strips
		var curS int64
		for first := true; ; first = false {
			if first {
				dfs, err := src.firstS()
				if err != nil {
					return nil, wrapErr(ErrMalformedTextRegion, err, "first S")
				}
				firstS += int64(dfs)
				curS = firstS
			} else {
				ids, ok, err := src.deltaS()
				if err != nil {
					return nil, wrapErr(ErrMalformedTextRegion, err, "delta S")
				}
				if !ok {
					break
				}
				curS += int64(ids) + int64(t.SBDSOFFSET)
			}
			if instances >= t.SBNUMINSTANCES {
				break
			}
			var curT int32
			if t.LOGSBSTRIPS > 0 {
				if curT, err = src.curT(t.LOGSBSTRIPS); err != nil {
					return nil, wrapErr(ErrMalformedTextRegion, err, "current T")
				}
			}
			ti := stripT + int64(curT)
			id, err := src.symbolID()
			if err != nil {
				return nil, wrapErr(ErrMalformedTextRegion, err, "symbol id")
			}
			if id >= uint32(len(t.SBSYMS)) || t.SBSYMS[id] == nil {
				return nil, wrapf(ErrMalformedTextRegion, "symbol id %d out of %d symbols", id, len(t.SBSYMS))
			}
			ib := t.SBSYMS[id]
			refine := false
			if t.SBREFINE {
				if refine, err = src.refine(); err != nil {
					return nil, wrapErr(ErrMalformedTextRegion, err, "refinement flag")
				}
			}
			if refine {
				if ib, err = t.refineSymbol(src, ib, grContexts); err != nil {
					return nil, err
				}
			}
			wi, hi := int64(ib.Width()), int64(ib.Height())
			if !t.TRANSPOSED && (t.REFCORNER == CornerTopRight || t.REFCORNER == CornerBottomRight) {
				curS += wi - 1
			} else if t.TRANSPOSED && (t.REFCORNER == CornerBottomLeft || t.REFCORNER == CornerBottomRight) {
				curS += hi - 1
			}
			x, y := t.placement(curS, ti, wi, hi)
			if inInt32(x) && inInt32(y) {
				ib.ComposeTo(reg, int32(x), int32(y), t.SBCOMBOP)
			}
			if !t.TRANSPOSED && (t.REFCORNER == CornerTopLeft || t.REFCORNER == CornerBottomLeft) {
				curS += wi - 1
			} else if t.TRANSPOSED && (t.REFCORNER == CornerTopLeft || t.REFCORNER == CornerTopRight) {
				curS += hi - 1
			}
			instances++
		}
	}
	return reg, nil
}

// placement 由参考角计算符号左上角坐标
// 入参: s 当前S坐标, ti 当前T坐标, wi 符号宽度, hi 符号高度
// 返回: int64 横坐标, int64 纵坐标
func (t *TRDProc) placement(s, ti, wi, hi int64) (int64, int64) {
	if !t.TRANSPOSED {
		switch t.REFCORNER {
		case CornerTopLeft:
			return s, ti
		case CornerTopRight:
			return s - wi + 1, ti
		case CornerBottomLeft:
			return s, ti - hi + 1
		default:
			return s - wi + 1, ti - hi + 1
		}
	}
	switch t.REFCORNER {
	case CornerTopLeft:
		return ti, s
	case CornerTopRight:
		return ti - wi + 1, s
	case CornerBottomLeft:
		return ti, s - hi + 1
	default:
		return ti - wi + 1, s - hi + 1
	}
}

// refineSymbol 对实例符号执行细化解码
func (t *TRDProc) refineSymbol(src textSource, ibo *Image, grContexts []ArithCtx) (*Image, error) {
	d, err := src.deltas()
	if err != nil {
		return nil, wrapErr(ErrMalformedTextRegion, err, "refinement deltas")
	}
	grw := int64(ibo.Width()) + int64(d.rdw)
	grh := int64(ibo.Height()) + int64(d.rdh)
	if grw < 0 || grh < 0 || grw > 0x7FFFFFFF || grh > 0x7FFFFFFF {
		return nil, wrapf(ErrMalformedTextRegion, "refined symbol %dx%d", grw, grh)
	}
	grrd := NewGRRDProc()
	grrd.GRW = uint32(grw)
	grrd.GRH = uint32(grh)
	grrd.GRTEMPLATE = t.SBRTEMPLATE
	grrd.GRREFERENCE = ibo
	grrd.GRREFERENCEDX = (d.rdw >> 1) + d.rdx
	grrd.GRREFERENCEDY = (d.rdh >> 1) + d.rdy
	grrd.GRAT = t.SBRAT
	grrd.MaxPixels = t.MaxPixels
	return src.refineBitmap(grrd, grContexts)
}

func inInt32(v int64) bool {
	return v >= -0x80000000 && v <= 0x7FFFFFFF
}

// arithTextSource 算术编码的文本区域字段
type arithTextSource struct {
	ad  *ArithDecoder
	ids *TextIntDecoders
}

func (a *arithTextSource) value(d *ArithIntDecoder, what string) (int32, error) {
	v, ok := d.Decode(a.ad)
	if !ok {
		return 0, fmt.Errorf("jbig2: unexpected OOB decoding %s", what)
	}
	return v, nil
}

func (a *arithTextSource) stripT() (int32, error) {
	return a.value(a.ids.IADT, "IADT")
}

func (a *arithTextSource) firstS() (int32, error) {
	return a.value(a.ids.IAFS, "IAFS")
}

func (a *arithTextSource) deltaS() (int32, bool, error) {
	v, ok := a.ids.IADS.Decode(a.ad)
	return v, ok, nil
}

func (a *arithTextSource) curT(uint8) (int32, error) {
	return a.value(a.ids.IAIT, "IAIT")
}

func (a *arithTextSource) symbolID() (uint32, error) {
	return a.ids.IAID.Decode(a.ad), nil
}

func (a *arithTextSource) refine() (bool, error) {
	v, err := a.value(a.ids.IARI, "IARI")
	return v != 0, err
}

func (a *arithTextSource) deltas() (refinementDeltas, error) {
	var d refinementDeltas
	var err error
	if d.rdw, err = a.value(a.ids.IARDW, "IARDW"); err != nil {
		return d, err
	}
	if d.rdh, err = a.value(a.ids.IARDH, "IARDH"); err != nil {
		return d, err
	}
	if d.rdx, err = a.value(a.ids.IARDX, "IARDX"); err != nil {
		return d, err
	}
	d.rdy, err = a.value(a.ids.IARDY, "IARDY")
	return d, err
}

func (a *arithTextSource) refineBitmap(grrd *GRRDProc, grContexts []ArithCtx) (*Image, error) {
	return grrd.Decode(a.ad, grContexts)
}

// huffmanTextSource 霍夫曼编码的文本区域字段
type huffmanTextSource struct {
	t      *TRDProc
	stream *BitStream
	dec    *HuffmanDecoder
	rsize  int32
}

func (h *huffmanTextSource) stripT() (int32, error) {
	return h.dec.decodeValue(h.t.SBHUFFDT, "DT")
}

func (h *huffmanTextSource) firstS() (int32, error) {
	return h.dec.decodeValue(h.t.SBHUFFFS, "FS")
}

func (h *huffmanTextSource) deltaS() (int32, bool, error) {
	return h.dec.Decode(h.t.SBHUFFDS)
}

func (h *huffmanTextSource) curT(logStrips uint8) (int32, error) {
	v, err := h.stream.ReadNBits(uint32(logStrips))
	return int32(v), err
}

func (h *huffmanTextSource) symbolID() (uint32, error) {
	if h.t.SBSYMCODES == nil {
		return h.stream.ReadNBits(uint32(h.t.SBSYMCODELEN))
	}
	v, err := h.dec.decodeValue(h.t.SBSYMCODES, "symbol id")
	return uint32(v), err
}

func (h *huffmanTextSource) refine() (bool, error) {
	return h.stream.Read1BitBool()
}

func (h *huffmanTextSource) deltas() (refinementDeltas, error) {
	var d refinementDeltas
	var err error
	if d.rdw, err = h.dec.decodeValue(h.t.SBHUFFRDW, "RDW"); err != nil {
		return d, err
	}
	if d.rdh, err = h.dec.decodeValue(h.t.SBHUFFRDH, "RDH"); err != nil {
		return d, err
	}
	if d.rdx, err = h.dec.decodeValue(h.t.SBHUFFRDX, "RDX"); err != nil {
		return d, err
	}
	if d.rdy, err = h.dec.decodeValue(h.t.SBHUFFRDY, "RDY"); err != nil {
		return d, err
	}
	h.rsize, err = h.dec.decodeValue(h.t.SBHUFFRSIZE, "RSIZE")
	return d, err
}

// refineBitmap 在RSIZE字节内用独立的算术解码器细化, 之后跳过恰好RSIZE字节
func (h *huffmanTextSource) refineBitmap(grrd *GRRDProc, grContexts []ArithCtx) (*Image, error) {
	if h.rsize < 0 {
		return nil, wrapf(ErrMalformedTextRegion, "refinement size %d", h.rsize)
	}
	sub, err := h.stream.SubStream(uint32(h.rsize))
	if err != nil {
		return nil, err
	}
	return grrd.Decode(NewArithDecoder(sub), grContexts)
}
