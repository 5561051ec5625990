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

// SDDProc 符号字典解码过程(6.5)
type SDDProc struct {
	SDHUFF        bool
	SDREFAGG      bool
	SDRTEMPLATE   uint8
	SDTEMPLATE    uint8
	SDNUMINSYMS   uint32
	SDNUMNEWSYMS  uint32
	SDNUMEXSYMS   uint32
	SDINSYMS      []*Image
	SDHUFFDH      *HuffmanTable
	SDHUFFDW      *HuffmanTable
	SDHUFFBMSIZE  *HuffmanTable
	SDHUFFAGGINST *HuffmanTable
	SDAT          [8]int8
	SDRAT         [4]int8
	MaxPixels     int64
	tables        *standardTableSet
}

// NewSDDProc 创建符号字典解码过程
// 入参: tables 标准霍夫曼表集合
// 返回: *SDDProc 解码过程对象
func NewSDDProc(tables *standardTableSet) *SDDProc {
	return &SDDProc{tables: tables}
}

// symbolSource 符号字典各字段的取值来源
type symbolSource interface {
	heightDelta() (int32, bool, error)
	widthDelta() (int32, bool, error)
	aggregateCount() (int32, error)
	exportRun() (int32, error)
	aggregate(trd *TRDProc, grContexts []ArithCtx) (*Image, error)
	single(numSyms uint32) (id uint32, rdx, rdy int32, err error)
	refineSingle(grrd *GRRDProc, grContexts []ArithCtx) (*Image, error)
}

// DecodeArith 算术解码符号字典
// 入参: ad 算术解码器, gbContexts 通用区域上下文, grContexts 细化上下文
// 返回: *SymbolDict 符号字典, error 错误信息
func (s *SDDProc) DecodeArith(ad *ArithDecoder, gbContexts, grContexts []ArithCtx) (*SymbolDict, error) {
	src := &arithSymbolSource{
		ad:    ad,
		iadh:  NewArithIntDecoder(),
		iadw:  NewArithIntDecoder(),
		iaai:  NewArithIntDecoder(),
		iaex:  NewArithIntDecoder(),
		text:  NewTextIntDecoders(symbolCodeLen(s.SDNUMINSYMS + s.SDNUMNEWSYMS)),
		codes: symbolCodeLen(s.SDNUMINSYMS + s.SDNUMNEWSYMS),
	}
	return s.decode(src, nil, gbContexts, grContexts)
}

// DecodeHuffman 霍夫曼解码符号字典
// 入参: stream 位流, grContexts 细化上下文
// 返回: *SymbolDict 符号字典, error 错误信息
func (s *SDDProc) DecodeHuffman(stream *BitStream, grContexts []ArithCtx) (*SymbolDict, error) {
	if s.SDHUFFDH == nil || s.SDHUFFDW == nil || s.SDHUFFBMSIZE == nil || (s.SDREFAGG && s.SDHUFFAGGINST == nil) {
		return nil, wrapf(ErrMalformedSymbolDictionary, "missing huffman table")
	}
	src := &huffmanSymbolSource{s: s, stream: stream, dec: NewHuffmanDecoder(stream)}
	return s.decode(src, stream, nil, grContexts)
}

// decode 6.5.5的解码流程, stream非nil时为霍夫曼模式
func (s *SDDProc) decode(src symbolSource, stream *BitStream, gbContexts, grContexts []ArithCtx) (*SymbolDict, error) {
	if uint32(len(s.SDINSYMS)) != s.SDNUMINSYMS {
		return nil, wrapf(ErrMalformedSymbolDictionary, "%d input symbols, header says %d", len(s.SDINSYMS), s.SDNUMINSYMS)
	}
	if uint64(s.SDNUMEXSYMS) > uint64(s.SDNUMINSYMS)+uint64(s.SDNUMNEWSYMS) {
		return nil, wrapf(ErrMalformedSymbolDictionary, "%d exported symbols out of %d", s.SDNUMEXSYMS, uint64(s.SDNUMINSYMS)+uint64(s.SDNUMNEWSYMS))
	}
	newSyms := make([]*Image, s.SDNUMNEWSYMS)
	// 输入符号与已解码新符号, 供细化与聚合引用
	var syms []*Image
	if s.SDREFAGG {
		syms = make([]*Image, 0, len(s.SDINSYMS)+len(newSyms))
		syms = append(syms, s.SDINSYMS...)
	}
	var widths []uint32
	collective := stream != nil && !s.SDREFAGG
	if collective {
		widths = make([]uint32, s.SDNUMNEWSYMS)
	}
	var hcHeight int64
	var decoded, classes uint32
	for decoded < s.SDNUMNEWSYMS {
		classes++
		if classes > s.SDNUMNEWSYMS {
			return nil, wrapf(ErrMalformedSymbolDictionary, "more height classes than symbols")
		}
		dh, ok, err := src.heightDelta()
		if err != nil {
			return nil, wrapErr(ErrMalformedSymbolDictionary, err, "height class delta")
		}
		if !ok {
			break
		}
		hcHeight += int64(dh)
		if hcHeight < 0 || hcHeight > maxSymbolDimension {
			return nil, wrapf(ErrMalformedSymbolDictionary, "height class height %d", hcHeight)
		}
		var symWidth, totWidth int64
		firstSym := decoded
		for {
			dw, ok, err := src.widthDelta()
			if err != nil {
				return nil, wrapErr(ErrMalformedSymbolDictionary, err, "symbol width delta")
			}
			if !ok {
				break
			}
			if decoded >= s.SDNUMNEWSYMS {
				return nil, wrapf(ErrMalformedSymbolDictionary, "more than %d new symbols", s.SDNUMNEWSYMS)
			}
			symWidth += int64(dw)
			if symWidth < 0 || symWidth > maxSymbolDimension {
				return nil, wrapf(ErrMalformedSymbolDictionary, "symbol width %d", symWidth)
			}
			totWidth += symWidth
			if collective {
				widths[decoded] = uint32(symWidth)
				decoded++
				continue
			}
			bs, err := s.decodeSymbol(src, gbContexts, grContexts, syms, uint32(symWidth), uint32(hcHeight))
			if err != nil {
				return nil, err
			}
			newSyms[decoded] = bs
			if s.SDREFAGG {
				syms = append(syms, bs)
			}
			decoded++
		}
		if collective {
			if err := s.decodeCollective(src.(*huffmanSymbolSource), newSyms, widths, firstSym, decoded, uint32(totWidth), uint32(hcHeight)); err != nil {
				return nil, err
			}
		}
	}
	if decoded < s.SDNUMNEWSYMS {
		return nil, wrapf(ErrMalformedSymbolDictionary, "decoded %d of %d new symbols", decoded, s.SDNUMNEWSYMS)
	}
	return s.export(src, newSyms)
}

// decodeSymbol 解码单个符号位图(6.5.8.1与6.5.8.2)
// syms 为输入符号后接已解码的新符号
func (s *SDDProc) decodeSymbol(src symbolSource, gbContexts, grContexts []ArithCtx, syms []*Image, w, h uint32) (*Image, error) {
	if !s.SDREFAGG {
		grd := NewGRDProc()
		grd.GBW = w
		grd.GBH = h
		grd.GBTEMPLATE = s.SDTEMPLATE
		grd.GBAT = s.SDAT
		grd.MaxPixels = s.MaxPixels
		return grd.DecodeArith(src.(*arithSymbolSource).ad, gbContexts)
	}
	n, err := src.aggregateCount()
	if err != nil {
		return nil, wrapErr(ErrMalformedSymbolDictionary, err, "aggregate instance count")
	}
	switch {
	case n > 1:
		trd := NewTRDProc()
		trd.SBHUFF = s.SDHUFF
		trd.SBREFINE = true
		trd.SBW = w
		trd.SBH = h
		trd.SBNUMINSTANCES = uint32(n)
		trd.SBSYMS = syms
		trd.SBCOMBOP = ComposeOr
		trd.REFCORNER = CornerTopLeft
		trd.SBRTEMPLATE = s.SDRTEMPLATE
		trd.SBRAT = s.SDRAT
		trd.MaxPixels = s.MaxPixels
		return src.aggregate(trd, grContexts)
	case n == 1:
		id, rdx, rdy, err := src.single(uint32(len(syms)))
		if err != nil {
			return nil, wrapErr(ErrMalformedSymbolDictionary, err, "refinement instance")
		}
		if id >= uint32(len(syms)) || syms[id] == nil {
			return nil, wrapf(ErrMalformedSymbolDictionary, "refinement symbol id %d out of %d symbols", id, len(syms))
		}
		grrd := NewGRRDProc()
		grrd.GRW = w
		grrd.GRH = h
		grrd.GRTEMPLATE = s.SDRTEMPLATE
		grrd.GRREFERENCE = syms[id]
		grrd.GRREFERENCEDX = rdx
		grrd.GRREFERENCEDY = rdy
		grrd.GRAT = s.SDRAT
		grrd.MaxPixels = s.MaxPixels
		return src.refineSingle(grrd, grContexts)
	}
	return nil, wrapf(ErrMalformedSymbolDictionary, "aggregate instance count %d", n)
}

// decodeCollective 解码霍夫曼模式下高度类的合并位图并切分为符号(6.5.9)
func (s *SDDProc) decodeCollective(src *huffmanSymbolSource, newSyms []*Image, widths []uint32, first, end, totWidth, height uint32) error {
	bmSize, err := src.dec.decodeValue(s.SDHUFFBMSIZE, "BMSIZE")
	if err != nil {
		return wrapErr(ErrMalformedSymbolDictionary, err, "collective bitmap size")
	}
	if bmSize < 0 {
		return wrapf(ErrMalformedSymbolDictionary, "collective bitmap size %d", bmSize)
	}
	bhc, err := newRegionBitmap(totWidth, height, s.MaxPixels)
	if err != nil {
		return err
	}
	if bmSize == 0 {
		raw, err := src.stream.ReadBytes(uint32(bhc.Stride()) * height)
		if err != nil {
			return err
		}
		copy(bhc.Data(), raw)
		bhc.clearPadding()
	} else {
		data, err := src.stream.ReadBytes(uint32(bmSize))
		if err != nil {
			return err
		}
		if err := decodeG4(data, bhc); err != nil {
			return err
		}
	}
	var x int32
	for i := first; i < end; i++ {
		sym := NewImage(int32(widths[i]), int32(height))
		for y := int32(0); y < int32(height); y++ {
			for c := int32(0); c < sym.Width(); c++ {
				sym.SetPixel(c, y, bhc.GetPixel(x+c, y))
			}
		}
		x += sym.Width()
		newSyms[i] = sym
	}
	return nil
}

// export 解码导出标志并组装导出符号(6.5.10)
func (s *SDDProc) export(src symbolSource, newSyms []*Image) (*SymbolDict, error) {
	total := s.SDNUMINSYMS + s.SDNUMNEWSYMS
	exported := make([]*Image, 0, min(s.SDNUMEXSYMS, total))
	var index uint32
	cur := false
	for runs := uint32(0); index < total; runs++ {
		if runs > 2*total+2 {
			return nil, wrapf(ErrMalformedSymbolDictionary, "too many export runs")
		}
		run, err := src.exportRun()
		if err != nil {
			return nil, wrapErr(ErrMalformedSymbolDictionary, err, "export run length")
		}
		if run < 0 || uint64(index)+uint64(run) > uint64(total) {
			return nil, wrapf(ErrMalformedSymbolDictionary, "export run %d at %d overruns %d symbols", run, index, total)
		}
		if cur {
			for i := index; i < index+uint32(run); i++ {
				if i < s.SDNUMINSYMS {
					exported = append(exported, s.SDINSYMS[i])
				} else {
					exported = append(exported, newSyms[i-s.SDNUMINSYMS])
				}
			}
		}
		index += uint32(run)
		cur = !cur
	}
	if uint32(len(exported)) != s.SDNUMEXSYMS {
		return nil, wrapf(ErrMalformedSymbolDictionary, "exported %d symbols, header says %d", len(exported), s.SDNUMEXSYMS)
	}
	return &SymbolDict{Symbols: exported}, nil
}

// arithSymbolSource 算术编码的符号字典字段
type arithSymbolSource struct {
	ad    *ArithDecoder
	iadh  *ArithIntDecoder
	iadw  *ArithIntDecoder
	iaai  *ArithIntDecoder
	iaex  *ArithIntDecoder
	text  *TextIntDecoders
	codes uint8
}

func (a *arithSymbolSource) heightDelta() (int32, bool, error) {
	v, ok := a.iadh.Decode(a.ad)
	return v, ok, nil
}

func (a *arithSymbolSource) widthDelta() (int32, bool, error) {
	v, ok := a.iadw.Decode(a.ad)
	return v, ok, nil
}

func (a *arithSymbolSource) aggregateCount() (int32, error) {
	v, ok := a.iaai.Decode(a.ad)
	if !ok {
		return 0, wrapf(ErrMalformedSymbolDictionary, "OOB aggregate instance count")
	}
	return v, nil
}

func (a *arithSymbolSource) exportRun() (int32, error) {
	v, ok := a.iaex.Decode(a.ad)
	if !ok {
		return 0, wrapf(ErrMalformedSymbolDictionary, "OOB export run length")
	}
	return v, nil
}

func (a *arithSymbolSource) aggregate(trd *TRDProc, grContexts []ArithCtx) (*Image, error) {
	trd.SBSYMCODELEN = a.codes
	return trd.DecodeArith(a.ad, grContexts, a.text)
}

func (a *arithSymbolSource) single(uint32) (uint32, int32, int32, error) {
	id := a.text.IAID.Decode(a.ad)
	rdx, ok := a.text.IARDX.Decode(a.ad)
	if !ok {
		return 0, 0, 0, wrapf(ErrMalformedSymbolDictionary, "OOB refinement dx")
	}
	rdy, ok := a.text.IARDY.Decode(a.ad)
	if !ok {
		return 0, 0, 0, wrapf(ErrMalformedSymbolDictionary, "OOB refinement dy")
	}
	return id, rdx, rdy, nil
}

func (a *arithSymbolSource) refineSingle(grrd *GRRDProc, grContexts []ArithCtx) (*Image, error) {
	return grrd.Decode(a.ad, grContexts)
}

// huffmanSymbolSource 霍夫曼编码的符号字典字段
type huffmanSymbolSource struct {
	s      *SDDProc
	stream *BitStream
	dec    *HuffmanDecoder
	rsize  int32
}

func (h *huffmanSymbolSource) heightDelta() (int32, bool, error) {
	return h.dec.Decode(h.s.SDHUFFDH)
}

func (h *huffmanSymbolSource) widthDelta() (int32, bool, error) {
	return h.dec.Decode(h.s.SDHUFFDW)
}

func (h *huffmanSymbolSource) aggregateCount() (int32, error) {
	return h.dec.decodeValue(h.s.SDHUFFAGGINST, "REFAGGNINST")
}

func (h *huffmanSymbolSource) exportRun() (int32, error) {
	return h.dec.decodeValue(h.s.tables.get(1), "EXRUNLENGTH")
}

// codeLen 聚合模式下符号ID的定长编码位数, 至少为1
func (h *huffmanSymbolSource) codeLen() uint8 {
	return max(1, symbolCodeLen(h.s.SDNUMINSYMS+h.s.SDNUMNEWSYMS))
}

func (h *huffmanSymbolSource) aggregate(trd *TRDProc, grContexts []ArithCtx) (*Image, error) {
	std := h.s.tables
	trd.SBSYMCODELEN = h.codeLen()
	trd.SBHUFFFS = std.get(6)
	trd.SBHUFFDS = std.get(8)
	trd.SBHUFFDT = std.get(11)
	trd.SBHUFFRDW = std.get(15)
	trd.SBHUFFRDH = std.get(15)
	trd.SBHUFFRDX = std.get(15)
	trd.SBHUFFRDY = std.get(15)
	trd.SBHUFFRSIZE = std.get(1)
	return trd.DecodeHuffman(h.stream, grContexts)
}

func (h *huffmanSymbolSource) single(uint32) (uint32, int32, int32, error) {
	id, err := h.stream.ReadNBits(uint32(h.codeLen()))
	if err != nil {
		return 0, 0, 0, err
	}
	std := h.s.tables
	rdx, err := h.dec.decodeValue(std.get(15), "RDX")
	if err != nil {
		return 0, 0, 0, err
	}
	rdy, err := h.dec.decodeValue(std.get(15), "RDY")
	if err != nil {
		return 0, 0, 0, err
	}
	if h.rsize, err = h.dec.decodeValue(std.get(1), "BMSIZE"); err != nil {
		return 0, 0, 0, err
	}
	return id, rdx, rdy, nil
}

// refineSingle 在BMSIZE字节内用独立的算术解码器细化, 之后跳过恰好BMSIZE字节
func (h *huffmanSymbolSource) refineSingle(grrd *GRRDProc, grContexts []ArithCtx) (*Image, error) {
	sub, err := h.stream.SubStream(uint32(h.rsize))
	if err != nil {
		return nil, err
	}
	return grrd.Decode(NewArithDecoder(sub), grContexts)
}
