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

import (
	"errors"
	"io"
)

// segmentHandler 段数据处理函数, stream为该段数据的独立位流
type segmentHandler func(d *Document, seg *Segment, stream *BitStream) error

// segmentHandlers 按段类型分派, 未列出的类型返回ErrUnsupportedSegmentType
var segmentHandlers = map[SegmentType]segmentHandler{
	SegmentSymbolDictionary:                  decodeSymbolDict,
	SegmentIntermediateTextRegion:            decodeTextRegion,
	SegmentImmediateTextRegion:               decodeTextRegion,
	SegmentImmediateLosslessTextRegion:       decodeTextRegion,
	SegmentIntermediateGenericRegion:         decodeGenericRegion,
	SegmentImmediateGenericRegion:            decodeGenericRegion,
	SegmentImmediateLosslessGenericRegion:    decodeGenericRegion,
	SegmentIntermediateRefinementRegion:      decodeRefinementRegion,
	SegmentImmediateRefinementRegion:         decodeRefinementRegion,
	SegmentImmediateLosslessRefinementRegion: decodeRefinementRegion,
	SegmentPageInformation:                   decodePageInfo,
	SegmentEndOfStripe:                       decodeEndOfStripe,
	SegmentProfiles:                          skipSegment,
	SegmentTables:                            decodeTable,
	SegmentExtension:                         decodeExtension,
}

// Document 文档上下文, 每次解码独占一份
type Document struct {
	stream      *BitStream
	header      *FileHeader
	globals     *globalSegments
	segments    map[uint32]*Segment
	pending     []*SegmentHeader
	headersRead bool
	page        *Page
	comments    []Comment
	tables      *standardTableSet
	maxPixels   int64
	pagesDone   uint32
	ended       bool
}

// newDocument 创建文档上下文
// 入参: data 数据, globals 全局段, embedded 是否为无文件头的嵌入式数据流, maxPixels 像素上限
// 返回: *Document 文档对象, error 错误信息
func newDocument(data []byte, globals *globalSegments, embedded bool, maxPixels int64) (*Document, error) {
	tables, err := newStandardTableSet()
	if err != nil {
		return nil, err
	}
	d := &Document{
		stream:    NewBitStream(data),
		globals:   globals,
		segments:  make(map[uint32]*Segment),
		tables:    tables,
		maxPixels: maxPixels,
	}
	if embedded {
		return d, nil
	}
	if d.header, err = ParseFileHeader(data); err != nil {
		return nil, err
	}
	d.stream.SetOffset(d.header.Length)
	tracer().Debugf("file header: %v, page count known=%v (%d)", d.header.Organization, d.header.PageCountKnown, d.header.PageCount)
	return d, nil
}

// sequential 段头与段数据是否交替出现
func (d *Document) sequential() bool {
	return d.header == nil || d.header.Sequential()
}

// segmentError 为段级错误附加段编号与偏移
func segmentError(h *SegmentHeader, err error) error {
	var se *SegmentError
	if errors.As(err, &se) {
		return err
	}
	return &SegmentError{Number: h.Number, Type: h.Type, Offset: h.Offset, Err: err}
}

// nextSegment 读取下一个段头及其数据
// 返回: *Segment 段, error 错误信息, 数据结束时为io.EOF
func (d *Document) nextSegment() (*Segment, error) {
	if d.ended {
		return nil, io.EOF
	}
	var h *SegmentHeader
	if d.sequential() {
		if d.stream.GetByteLeft() == 0 {
			return nil, io.EOF
		}
		var err error
		if h, err = ParseSegmentHeader(d.stream); err != nil {
			return nil, err
		}
	} else {
		if !d.headersRead {
			if err := d.readHeaders(); err != nil {
				return nil, err
			}
		}
		if len(d.pending) == 0 {
			return nil, io.EOF
		}
		h = d.pending[0]
		d.pending = d.pending[1:]
	}
	data, err := d.segmentData(h)
	if err != nil {
		return nil, segmentError(h, err)
	}
	return &Segment{Header: h, data: data}, nil
}

// readHeaders 随机访问组织: 读取全部段头, 直到文件结束段
func (d *Document) readHeaders() error {
	d.headersRead = true
	for d.stream.GetByteLeft() > 0 {
		h, err := ParseSegmentHeader(d.stream)
		if err != nil {
			return err
		}
		d.pending = append(d.pending, h)
		if h.Type == SegmentEndOfFile {
			return nil
		}
	}
	return wrapf(ErrTruncatedStream, "random-access file ends without end of file segment header")
}

// segmentData 截取段数据, 长度未知时扫描结束标记
func (d *Document) segmentData(h *SegmentHeader) ([]byte, error) {
	length := h.DataLength
	if h.UnknownLength() {
		if !d.sequential() || (h.Type != SegmentImmediateGenericRegion && h.Type != SegmentImmediateLosslessGenericRegion) {
			return nil, wrapf(ErrMalformedSegmentHeader, "unknown data length for %v", h.Type)
		}
		var err error
		if length, err = genericRegionLength(d.stream.GetPointer()); err != nil {
			return nil, err
		}
	}
	return d.stream.ReadBytes(length)
}

// lookup 按编号查找段, 先本地后全局
func (d *Document) lookup(number uint32) *Segment {
	if seg, ok := d.segments[number]; ok {
		return seg
	}
	return d.globals.lookup(number)
}

// referred 解析段头引用的全部段
// 入参: h 段头
// 返回: []*Segment 被引用段, error 错误信息
func (d *Document) referred(h *SegmentHeader) ([]*Segment, error) {
	out := make([]*Segment, 0, len(h.ReferredSegments))
	for _, n := range h.ReferredSegments {
		seg := d.lookup(n)
		if seg == nil {
			return nil, wrapf(ErrDanglingReference, "segment %d refers to unknown segment %d", h.Number, n)
		}
		out = append(out, seg)
	}
	return out, nil
}

// process 处理一个段, 页面结束时返回完成的页面
func (d *Document) process(seg *Segment) (*Page, error) {
	h := seg.Header
	tracer().Debugf("segment %d: %v, page %d, %d bytes at offset %d", h.Number, h.Type, h.PageAssociation, len(seg.data), h.Offset)
	switch h.Type {
	case SegmentEndOfPage:
		if d.page == nil {
			return nil, wrapf(ErrMalformedSegmentHeader, "end of page %d without page information", h.PageAssociation)
		}
		return d.finishPage(), nil
	case SegmentEndOfFile:
		d.ended = true
		if d.page != nil {
			return d.finishPage(), nil
		}
		return nil, nil
	}
	handler, ok := segmentHandlers[h.Type]
	if !ok {
		return nil, wrapf(ErrUnsupportedSegmentType, "%v", h.Type)
	}
	if err := handler(d, seg, NewBitStream(seg.data)); err != nil {
		return nil, err
	}
	d.segments[h.Number] = seg
	return nil, nil
}

// finishPage 完成当前页面并释放其关联段
func (d *Document) finishPage() *Page {
	page := d.page
	d.page = nil
	d.pagesDone++
	for n, seg := range d.segments {
		if seg.Header.PageAssociation == page.Number && page.Number != 0 {
			delete(d.segments, n)
		}
	}
	tracer().Infof("page %d complete: %dx%d", page.Number, page.Width(), page.Height())
	return page
}

// nextPage 处理段直到一页完成
// 返回: *Page 页面, error 错误信息, 没有更多页面时为io.EOF
func (d *Document) nextPage() (*Page, error) {
	for {
		seg, err := d.nextSegment()
		if err == io.EOF {
			return d.finishStream()
		}
		if err != nil {
			tracer().Errorf("segment header: %v", err)
			return nil, err
		}
		page, err := d.process(seg)
		if err != nil {
			err = segmentError(seg.Header, err)
			tracer().Errorf("%v", err)
			return nil, err
		}
		if page != nil {
			return page, nil
		}
	}
}

// finishStream 数据结束: 嵌入式数据流完成未结束的页面, 独立文件须以文件结束段收尾
func (d *Document) finishStream() (*Page, error) {
	if d.header == nil {
		if d.page != nil {
			return d.finishPage(), nil
		}
		return nil, io.EOF
	}
	if !d.ended {
		return nil, wrapf(ErrTruncatedStream, "file ends without end of file segment")
	}
	if d.header.PageCountKnown && d.pagesDone < d.header.PageCount {
		return nil, wrapf(ErrTruncatedStream, "file declares %d pages, found %d", d.header.PageCount, d.pagesDone)
	}
	return nil, io.EOF
}

// firstPageInfo 处理段直到遇到第一个页面信息段
// 返回: *PageInfo 页面信息, error 错误信息
func (d *Document) firstPageInfo() (*PageInfo, error) {
	for d.page == nil {
		seg, err := d.nextSegment()
		if err == io.EOF {
			return nil, wrapf(ErrTruncatedStream, "no page information segment")
		}
		if err != nil {
			return nil, err
		}
		if _, err := d.process(seg); err != nil {
			return nil, segmentError(seg.Header, err)
		}
	}
	return d.page.Info, nil
}

// decodeGlobals 处理全局数据流中的全部段
func (d *Document) decodeGlobals() error {
	for {
		seg, err := d.nextSegment()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := d.process(seg); err != nil {
			return segmentError(seg.Header, err)
		}
	}
}

// tableResolver 按引用顺序分配自定义霍夫曼表
type tableResolver struct {
	std    *standardTableSet
	custom []*HuffmanTable
	next   int
}

// resolve 获取表选择对应的霍夫曼表
func (r *tableResolver) resolve(sel TableSelector, sentinel error) (*HuffmanTable, error) {
	if sel != TableCustom {
		return r.std.get(int(sel)), nil
	}
	if r.next >= len(r.custom) {
		return nil, wrapf(sentinel, "custom huffman table %d not among referred segments", r.next+1)
	}
	t := r.custom[r.next]
	r.next++
	return t, nil
}

// decodeSymbolDict 解码符号字典段(类型0)
func decodeSymbolDict(d *Document, seg *Segment, stream *BitStream) error {
	h, err := ParseSymbolDictHeader(seg.Header, stream)
	if err != nil {
		return err
	}
	referred, err := d.referred(seg.Header)
	if err != nil {
		return err
	}
	var inSyms []*Image
	var last *SymbolDict
	resolver := &tableResolver{std: d.tables}
	for _, ref := range referred {
		switch ref.ResultType {
		case ResultSymbolDict:
			inSyms = append(inSyms, ref.SymbolDict.Symbols...)
			last = ref.SymbolDict
		case ResultHuffmanTable:
			resolver.custom = append(resolver.custom, ref.Table)
		}
	}
	sdd := NewSDDProc(d.tables)
	sdd.SDHUFF = h.SDHUFF
	sdd.SDREFAGG = h.SDREFAGG
	sdd.SDTEMPLATE = h.SDTEMPLATE
	sdd.SDRTEMPLATE = h.SDRTEMPLATE
	sdd.SDINSYMS = inSyms
	sdd.SDNUMINSYMS = uint32(len(inSyms))
	sdd.SDNUMNEWSYMS = h.SDNUMNEWSYMS
	sdd.SDNUMEXSYMS = h.SDNUMEXSYMS
	sdd.MaxPixels = d.maxPixels
	flattenAT(h.SDAT, sdd.SDAT[:])
	flattenAT(h.SDRAT, sdd.SDRAT[:])
	if h.SDHUFF {
		if sdd.SDHUFFDH, err = resolver.resolve(h.DH, ErrMalformedSymbolDictionary); err != nil {
			return err
		}
		if sdd.SDHUFFDW, err = resolver.resolve(h.DW, ErrMalformedSymbolDictionary); err != nil {
			return err
		}
		if sdd.SDHUFFBMSIZE, err = resolver.resolve(h.BMSIZE, ErrMalformedSymbolDictionary); err != nil {
			return err
		}
		if h.SDREFAGG {
			if sdd.SDHUFFAGGINST, err = resolver.resolve(h.AGGINST, ErrMalformedSymbolDictionary); err != nil {
				return err
			}
		}
	}
	var gb, gr []ArithCtx
	if !h.SDHUFF {
		gb = newArithCtxs(genericContextSize(h.SDTEMPLATE))
	}
	if h.SDREFAGG {
		gr = newArithCtxs(refinementContextSize(h.SDRTEMPLATE))
	}
	if h.ContextUsed {
		if last == nil {
			return wrapf(ErrMalformedSymbolDictionary, "context reuse without a referred symbol dictionary")
		}
		if gb != nil {
			if last.gbContexts == nil || last.gbTemplate != h.SDTEMPLATE {
				return wrapf(ErrMalformedSymbolDictionary, "referred symbol dictionary retained no template %d generic contexts", h.SDTEMPLATE)
			}
			gb = cloneArithCtxs(last.gbContexts)
		}
		if gr != nil {
			if last.grContexts == nil || last.grTemplate != h.SDRTEMPLATE {
				return wrapf(ErrMalformedSymbolDictionary, "referred symbol dictionary retained no template %d refinement contexts", h.SDRTEMPLATE)
			}
			gr = cloneArithCtxs(last.grContexts)
		}
	}
	tracer().Debugf("segment %d: symbol dictionary, %d input, %d new, %d exported, huffman=%v refagg=%v",
		seg.Number(), len(inSyms), h.SDNUMNEWSYMS, h.SDNUMEXSYMS, h.SDHUFF, h.SDREFAGG)
	var dict *SymbolDict
	if h.SDHUFF {
		dict, err = sdd.DecodeHuffman(stream, gr)
	} else {
		dict, err = sdd.DecodeArith(NewArithDecoder(stream), gb, gr)
	}
	if err != nil {
		return err
	}
	if h.ContextRetained {
		dict.gbContexts, dict.gbTemplate = gb, h.SDTEMPLATE
		dict.grContexts, dict.grTemplate = gr, h.SDRTEMPLATE
	}
	seg.ResultType = ResultSymbolDict
	seg.SymbolDict = dict
	return nil
}

// decodeTextRegion 解码文本区域段(类型4, 6, 7)
func decodeTextRegion(d *Document, seg *Segment, stream *BitStream) error {
	h, err := ParseTextRegionHeader(seg.Header, stream)
	if err != nil {
		return err
	}
	referred, err := d.referred(seg.Header)
	if err != nil {
		return err
	}
	var syms []*Image
	resolver := &tableResolver{std: d.tables}
	for _, ref := range referred {
		switch ref.ResultType {
		case ResultSymbolDict:
			syms = append(syms, ref.SymbolDict.Symbols...)
		case ResultHuffmanTable:
			resolver.custom = append(resolver.custom, ref.Table)
		}
	}
	trd := NewTRDProc()
	trd.SBHUFF = h.SBHUFF
	trd.SBREFINE = h.SBREFINE
	trd.SBRTEMPLATE = h.SBRTEMPLATE
	trd.TRANSPOSED = h.TRANSPOSED
	trd.SBDEFPIXEL = h.SBDEFPIXEL
	trd.SBDSOFFSET = h.SBDSOFFSET
	trd.SBW = h.Region.Width
	trd.SBH = h.Region.Height
	trd.SBNUMINSTANCES = h.SBNUMINSTANCES
	trd.LOGSBSTRIPS = h.LOGSBSTRIPS
	trd.SBSYMS = syms
	trd.SBCOMBOP = h.SBCOMBOP
	trd.REFCORNER = h.REFCORNER
	trd.MaxPixels = d.maxPixels
	flattenAT(h.SBRAT, trd.SBRAT[:])
	var gr []ArithCtx
	if h.SBREFINE {
		gr = newArithCtxs(refinementContextSize(h.SBRTEMPLATE))
	}
	tracer().Debugf("segment %d: text region %dx%d, %d symbols, %d instances, huffman=%v refine=%v",
		seg.Number(), trd.SBW, trd.SBH, len(syms), trd.SBNUMINSTANCES, h.SBHUFF, h.SBREFINE)
	var img *Image
	if h.SBHUFF {
		if trd.SBSYMCODES, err = buildSymbolIDTable(stream, uint32(len(syms))); err != nil {
			return wrapErr(ErrMalformedTextRegion, err, "symbol id table")
		}
		dst := []**HuffmanTable{&trd.SBHUFFFS, &trd.SBHUFFDS, &trd.SBHUFFDT}
		if h.SBREFINE {
			dst = append(dst, &trd.SBHUFFRDW, &trd.SBHUFFRDH, &trd.SBHUFFRDX, &trd.SBHUFFRDY, &trd.SBHUFFRSIZE)
		}
		sels := h.tableSelectors()
		for i, p := range dst {
			if *p, err = resolver.resolve(sels[i], ErrMalformedTextRegion); err != nil {
				return err
			}
		}
		img, err = trd.DecodeHuffman(stream, gr)
	} else {
		trd.SBSYMCODELEN = symbolCodeLen(uint32(len(syms)))
		img, err = trd.DecodeArith(NewArithDecoder(stream), gr, NewTextIntDecoders(trd.SBSYMCODELEN))
	}
	if err != nil {
		return err
	}
	return d.placeRegion(seg, img, h.Region)
}

// decodePageInfo 解码页面信息段(类型48)并开始新页面
func decodePageInfo(d *Document, seg *Segment, stream *BitStream) error {
	if d.page != nil {
		return wrapf(ErrMalformedSegmentHeader, "page information for page %d while page %d is open", seg.Header.PageAssociation, d.page.Number)
	}
	pi, err := parsePageInfo(stream)
	if err != nil {
		return err
	}
	page, err := newPage(seg.Header.PageAssociation, pi, d.maxPixels)
	if err != nil {
		return err
	}
	tracer().Debugf("page %d: %dx%d, default pixel %v, default op %v, striped=%v", page.Number, pi.Width, pi.Height, pi.DefaultPixel, pi.DefaultOp, pi.Striped)
	d.page = page
	seg.ResultType = ResultPageInfo
	seg.PageInfo = pi
	return nil
}

// decodeEndOfStripe 解码条带结束段(类型50)
func decodeEndOfStripe(d *Document, seg *Segment, stream *BitStream) error {
	y, err := stream.ReadInteger()
	if err != nil {
		return err
	}
	if d.page == nil {
		return wrapf(ErrMalformedRegion, "end of stripe outside a page")
	}
	seg.ResultType = ResultEndOfStripe
	seg.StripeEndY = y
	return d.page.endStripe(y)
}

// decodeTable 解码表段(类型53)
func decodeTable(d *Document, seg *Segment, stream *BitStream) error {
	table, err := ParseHuffmanTable(stream)
	if err != nil {
		return wrapErr(ErrMalformedSegmentHeader, err, "code table")
	}
	seg.ResultType = ResultHuffmanTable
	seg.Table = table
	return nil
}

// skipSegment 跳过不影响解码结果的段
func skipSegment(d *Document, seg *Segment, stream *BitStream) error {
	tracer().Debugf("segment %d: skipping %v", seg.Number(), seg.Type())
	return nil
}
