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

import "encoding/binary"

// mqEncoder 测试用MQ算术编码器(T.88 附录E), 与ArithDecoder互逆
type mqEncoder struct {
	a   uint32
	c   uint32
	ct  int
	buf []byte
}

func newMQEncoder() *mqEncoder {
	return &mqEncoder{a: mqInitialA, ct: 12, buf: []byte{0}}
}

func (e *mqEncoder) encode(cx *ArithCtx, bit int) {
	st := &mqStates[cx.index]
	e.a -= st.qe
	if bit == int(cx.mps) {
		if e.a&mqInitialA != 0 {
			e.c += st.qe
			return
		}
		if e.a < st.qe {
			e.a = st.qe
		} else {
			e.c += st.qe
		}
		cx.index = st.nmps
		e.renormalize()
		return
	}
	if e.a < st.qe {
		e.c += st.qe
	} else {
		e.a = st.qe
	}
	if st.swap {
		cx.mps = 1 - cx.mps
	}
	cx.index = st.nlps
	e.renormalize()
}

func (e *mqEncoder) renormalize() {
	for {
		e.a <<= 1
		e.c <<= 1
		e.ct--
		if e.ct == 0 {
			e.byteOut()
		}
		if e.a&mqInitialA != 0 {
			return
		}
	}
}

func (e *mqEncoder) byteOut() {
	last := len(e.buf) - 1
	if e.buf[last] == 0xFF {
		e.buf = append(e.buf, byte(e.c>>20))
		e.c &= 0xFFFFF
		e.ct = 7
		return
	}
	if e.c < 0x8000000 {
		e.buf = append(e.buf, byte(e.c>>19))
		e.c &= 0x7FFFF
		e.ct = 8
		return
	}
	e.buf[last]++
	if e.buf[last] == 0xFF {
		e.c &= 0x7FFFFFF
		e.buf = append(e.buf, byte(e.c>>20))
		e.c &= 0xFFFFF
		e.ct = 7
		return
	}
	e.buf = append(e.buf, byte(e.c>>19))
	e.c &= 0x7FFFF
	e.ct = 8
}

// flush 结束编码并追加FF AC标记
func (e *mqEncoder) flush() []byte {
	t := e.c + e.a
	e.c |= 0xFFFF
	if e.c >= t {
		e.c -= 0x8000
	}
	e.c <<= uint(e.ct)
	e.byteOut()
	e.c <<= uint(e.ct)
	e.byteOut()
	out := e.buf[1:]
	if n := len(out); n > 0 && out[n-1] == 0xFF {
		out = out[:n-1]
	}
	return append(append([]byte{}, out...), 0xFF, 0xAC)
}

// intEncoder 测试用算术整数编码器, 与ArithIntDecoder互逆
type intEncoder struct {
	ctx  []ArithCtx
	prev int
}

func newIntEncoder() *intEncoder {
	return &intEncoder{ctx: newArithCtxs(512)}
}

func (ie *intEncoder) bit(e *mqEncoder, bit int) {
	e.encode(&ie.ctx[ie.prev], bit)
	if ie.prev < 256 {
		ie.prev = (ie.prev << 1) | bit
	} else {
		ie.prev = (((ie.prev << 1) | bit) & 511) | 256
	}
}

func (ie *intEncoder) encode(e *mqEncoder, v int32) {
	ie.prev = 1
	sign, mag := 0, int64(v)
	if v < 0 {
		sign, mag = 1, -int64(v)
	}
	depth := 0
	for depth < len(intPrefixes)-1 && mag >= int64(intPrefixes[depth+1].offset) {
		depth++
	}
	ie.bit(e, sign)
	for i := 0; i < depth; i++ {
		ie.bit(e, 1)
	}
	if depth < len(intPrefixes)-1 {
		ie.bit(e, 0)
	}
	p := intPrefixes[depth]
	rest := uint64(mag - int64(p.offset))
	for i := p.bits - 1; i >= 0; i-- {
		ie.bit(e, int(rest>>uint(i))&1)
	}
}

func (ie *intEncoder) encodeOOB(e *mqEncoder) {
	ie.prev = 1
	for _, b := range []int{1, 0, 0, 0} {
		ie.bit(e, b)
	}
}

// iaidEncoder 测试用符号ID编码器
type iaidEncoder struct {
	ctx     []ArithCtx
	codeLen uint8
}

func newIaidEncoder(codeLen uint8) *iaidEncoder {
	return &iaidEncoder{ctx: newArithCtxs(1 << codeLen), codeLen: codeLen}
}

func (ie *iaidEncoder) encode(e *mqEncoder, id uint32) {
	prev := 1
	for i := int(ie.codeLen) - 1; i >= 0; i-- {
		bit := int(id>>uint(i)) & 1
		e.encode(&ie.ctx[prev], bit)
		prev = (prev << 1) | bit
	}
}

// bitWriter 测试用位写入器, 高位在前
type bitWriter struct {
	buf  []byte
	used uint
}

func (w *bitWriter) write(v uint32, bits int) {
	for i := bits - 1; i >= 0; i-- {
		if w.used == 0 {
			w.buf = append(w.buf, 0)
		}
		if (v>>uint(i))&1 != 0 {
			w.buf[len(w.buf)-1] |= 0x80 >> w.used
		}
		w.used = (w.used + 1) & 7
	}
}

func (w *bitWriter) align() {
	w.used = 0
}

func (w *bitWriter) writeBytes(p []byte) {
	w.align()
	w.buf = append(w.buf, p...)
}

func (w *bitWriter) bytes() []byte {
	return w.buf
}

// writeHuffman 按表写入一个值
func writeHuffman(w *bitWriter, t *HuffmanTable, v int32) bool {
	for _, l := range t.lines {
		if l.PrefLen == 0 || l.kind == lineOOB {
			continue
		}
		var offset int64
		switch l.kind {
		case lineLower:
			if v > l.RangeLow {
				continue
			}
			offset = int64(l.RangeLow) - int64(v)
		case lineUpper:
			if v < l.RangeLow {
				continue
			}
			offset = int64(v) - int64(l.RangeLow)
		default:
			if int64(v) < int64(l.RangeLow) || int64(v) >= int64(l.RangeLow)+int64(1)<<l.RangeLen {
				continue
			}
			offset = int64(v) - int64(l.RangeLow)
		}
		w.write(l.code, int(l.PrefLen))
		if l.RangeLen > 0 {
			w.write(uint32(offset), int(l.RangeLen))
		}
		return true
	}
	return false
}

// writeHuffmanOOB 写入表的OOB码
func writeHuffmanOOB(w *bitWriter, t *HuffmanTable) bool {
	for _, l := range t.lines {
		if l.kind == lineOOB {
			w.write(l.code, int(l.PrefLen))
			return true
		}
	}
	return false
}

// genericContext 按6.2.5.3的模板定义直接计算像素(x, y)的上下文
func genericContext(img *Image, x, y int32, template uint8, at [8]int8) uint32 {
	p := func(dx, dy int32) uint32 {
		return uint32(img.GetPixel(x+dx, y+dy))
	}
	a := func(i int) uint32 {
		return uint32(img.GetPixel(x+int32(at[2*i]), y+int32(at[2*i+1])))
	}
	switch template {
	case 0:
		return p(-1, 0) | p(-2, 0)<<1 | p(-3, 0)<<2 | p(-4, 0)<<3 | a(0)<<4 |
			p(2, -1)<<5 | p(1, -1)<<6 | p(0, -1)<<7 | p(-1, -1)<<8 | p(-2, -1)<<9 |
			a(1)<<10 | a(2)<<11 | p(1, -2)<<12 | p(0, -2)<<13 | p(-1, -2)<<14 | a(3)<<15
	case 1:
		return p(-1, 0) | p(-2, 0)<<1 | p(-3, 0)<<2 | a(0)<<3 |
			p(2, -1)<<4 | p(1, -1)<<5 | p(0, -1)<<6 | p(-1, -1)<<7 | p(-2, -1)<<8 |
			p(2, -2)<<9 | p(1, -2)<<10 | p(0, -2)<<11 | p(-1, -2)<<12
	case 2:
		return p(-1, 0) | p(-2, 0)<<1 | a(0)<<2 |
			p(1, -1)<<3 | p(0, -1)<<4 | p(-1, -1)<<5 | p(-2, -1)<<6 |
			p(1, -2)<<7 | p(0, -2)<<8 | p(-1, -2)<<9
	}
	return p(-1, 0) | p(-2, 0)<<1 | p(-3, 0)<<2 | p(-4, 0)<<3 | a(0)<<4 |
		p(1, -1)<<5 | p(0, -1)<<6 | p(-1, -1)<<7 | p(-2, -1)<<8 | p(-3, -1)<<9
}

// nominalAT 各模板的标称AT像素
func nominalAT(template uint8) [8]int8 {
	if template == 0 {
		return [8]int8{3, -1, -3, -1, 2, -2, -2, -2}
	}
	if template == 1 {
		return [8]int8{3, -1}
	}
	return [8]int8{2, -1}
}

// encodeGeneric 以算术编码写入通用区域位图
func encodeGeneric(e *mqEncoder, contexts []ArithCtx, img *Image, template uint8, tpgdon bool, at [8]int8) {
	ltp := 0
	for y := int32(0); y < img.Height(); y++ {
		if tpgdon {
			same := 1
			for x := int32(0); x < img.Width(); x++ {
				if img.GetPixel(x, y) != img.GetPixel(x, y-1) {
					same = 0
					break
				}
			}
			e.encode(&contexts[genericTemplates[template].sltp], same^ltp)
			ltp = same
			if ltp == 1 {
				continue
			}
		}
		for x := int32(0); x < img.Width(); x++ {
			e.encode(&contexts[genericContext(img, x, y, template, at)], img.GetPixel(x, y))
		}
	}
}

// imageFromRows 由字符行构造位图, '#'为黑色
func imageFromRows(rows ...string) *Image {
	w := 0
	if len(rows) > 0 {
		w = len(rows[0])
	}
	img := NewImage(int32(w), int32(len(rows)))
	for y, row := range rows {
		for x, c := range row {
			if c == '#' {
				img.SetPixel(int32(x), int32(y), 1)
			}
		}
	}
	return img
}

// testPattern 确定性测试图案, 每两行相同以覆盖典型预测
func testPattern(w, h int32) *Image {
	img := NewImage(w, h)
	for y := int32(0); y < h; y++ {
		k := y / 2
		for x := int32(0); x < w; x++ {
			v := (x+k*3)%5 < 2
			if (x*k)%7 == 3 {
				v = !v
			}
			if v {
				img.SetPixel(x, y, 1)
			}
		}
	}
	return img
}

// sameImage 比较两幅位图的尺寸与像素
func sameImage(a, b *Image) bool {
	if a.Width() != b.Width() || a.Height() != b.Height() {
		return false
	}
	for y := int32(0); y < a.Height(); y++ {
		for x := int32(0); x < a.Width(); x++ {
			if a.GetPixel(x, y) != b.GetPixel(x, y) {
				return false
			}
		}
	}
	return true
}

func be32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

// testSegment 测试用段描述
type testSegment struct {
	number uint32
	typ    SegmentType
	refs   []uint32
	page   uint32
	data   []byte
	length uint32
}

// header 编码段头, length非零时覆盖数据长度字段
func (s testSegment) header() []byte {
	flags := byte(s.typ)
	if s.page > 0xFF {
		flags |= 0x40
	}
	out := append(be32(s.number), flags)
	out = append(out, byte(len(s.refs))<<5)
	width := referredSegmentWidth(s.number)
	for _, r := range s.refs {
		switch width {
		case 1:
			out = append(out, byte(r))
		case 2:
			out = binary.BigEndian.AppendUint16(out, uint16(r))
		default:
			out = binary.BigEndian.AppendUint32(out, r)
		}
	}
	if s.page > 0xFF {
		out = binary.BigEndian.AppendUint32(out, s.page)
	} else {
		out = append(out, byte(s.page))
	}
	length := uint32(len(s.data))
	if s.length != 0 {
		length = s.length
	}
	return binary.BigEndian.AppendUint32(out, length)
}

// sequentialFile 以顺序组织构造独立文件, pages为0时页数未知
func sequentialFile(pages uint32, segs ...testSegment) []byte {
	out := append([]byte{}, fileMagic...)
	if pages == 0 {
		out = append(out, 0x03)
	} else {
		out = append(out, 0x01)
		out = append(out, be32(pages)...)
	}
	return append(out, segmentStream(segs...)...)
}

// randomAccessFile 以随机访问组织构造独立文件
func randomAccessFile(pages uint32, segs ...testSegment) []byte {
	out := append(append([]byte{}, fileMagic...), 0x00)
	out = append(out, be32(pages)...)
	for _, s := range segs {
		out = append(out, s.header()...)
	}
	for _, s := range segs {
		out = append(out, s.data...)
	}
	return out
}

// segmentStream 顺序排列的段头与段数据, 即嵌入式数据流
func segmentStream(segs ...testSegment) []byte {
	var out []byte
	for _, s := range segs {
		out = append(out, s.header()...)
		out = append(out, s.data...)
	}
	return out
}

// pageInfoData 页面信息段数据
func pageInfoData(w, h uint32, flags uint8, striping uint16) []byte {
	out := append(be32(w), be32(h)...)
	out = append(out, be32(0)...)
	out = append(out, be32(0)...)
	out = append(out, flags)
	return binary.BigEndian.AppendUint16(out, striping)
}

// regionInfoData 区域段信息字段
func regionInfoData(w, h, x, y uint32, flags uint8) []byte {
	out := append(be32(w), be32(h)...)
	out = append(out, be32(x)...)
	out = append(out, be32(y)...)
	return append(out, flags)
}

// genericRegionData 算术编码的通用区域段数据
func genericRegionData(img *Image, x, y uint32, op ComposeOp, template uint8, tpgdon bool) []byte {
	out := regionInfoData(uint32(img.Width()), uint32(img.Height()), x, y, uint8(op))
	flags := template << 1
	if tpgdon {
		flags |= 0x08
	}
	out = append(out, flags)
	at := nominalAT(template)
	n := 1
	if template == 0 {
		n = 4
	}
	for i := 0; i < n; i++ {
		out = append(out, byte(at[2*i]), byte(at[2*i+1]))
	}
	e := newMQEncoder()
	encodeGeneric(e, newArithCtxs(genericContextSize(template)), img, template, tpgdon, at)
	return append(out, e.flush()...)
}

// singlePageFile 单页独立文件: 页面信息, 一个直接通用区域, 页面结束与文件结束
func singlePageFile(img *Image) []byte {
	w, h := uint32(img.Width()), uint32(img.Height())
	return sequentialFile(1,
		testSegment{number: 0, typ: SegmentPageInformation, page: 1, data: pageInfoData(w, h, 0, 0)},
		testSegment{number: 1, typ: SegmentImmediateGenericRegion, page: 1, data: genericRegionData(img, 0, 0, ComposeOr, 0, true)},
		testSegment{number: 2, typ: SegmentEndOfPage, page: 1},
		testSegment{number: 3, typ: SegmentEndOfFile},
	)
}
