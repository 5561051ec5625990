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
	"bytes"
	"encoding/binary"
)

// GenericRegionHeader 通用区域段数据头(7.4.6)
type GenericRegionHeader struct {
	Region     RegionInfo
	Flags      uint8
	MMR        bool
	GBTEMPLATE uint8
	TPGDON     bool
	GBAT       []ATPixel
}

// ParseGenericRegionHeader 解析通用区域段数据头
// 入参: header 段头, stream 段数据位流
// 返回: *GenericRegionHeader 数据头, error 错误信息
func ParseGenericRegionHeader(header *SegmentHeader, stream *BitStream) (*GenericRegionHeader, error) {
	ri, err := parseRegionInfo(stream)
	if err != nil {
		return nil, err
	}
	flags, err := stream.Read1Byte()
	if err != nil {
		return nil, err
	}
	h := &GenericRegionHeader{
		Region:     ri,
		Flags:      flags,
		MMR:        flags&0x01 != 0,
		GBTEMPLATE: (flags >> 1) & 0x03,
		TPGDON:     flags&0x08 != 0,
	}
	if flags&0x10 != 0 {
		return nil, wrapf(ErrUnsupportedSegmentType, "segment %d: extended generic template", header.Number)
	}
	if !h.MMR {
		n := 1
		if h.GBTEMPLATE == 0 {
			n = 4
		}
		if h.GBAT, err = readATPixels(stream, n); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// RefinementRegionHeader 通用细化区域段数据头(7.4.7)
type RefinementRegionHeader struct {
	Region     RegionInfo
	Flags      uint8
	GRTEMPLATE uint8
	TPGRON     bool
	GRAT       []ATPixel
}

// ParseRefinementRegionHeader 解析通用细化区域段数据头
// 入参: header 段头, stream 段数据位流
// 返回: *RefinementRegionHeader 数据头, error 错误信息
func ParseRefinementRegionHeader(header *SegmentHeader, stream *BitStream) (*RefinementRegionHeader, error) {
	ri, err := parseRegionInfo(stream)
	if err != nil {
		return nil, err
	}
	flags, err := stream.Read1Byte()
	if err != nil {
		return nil, err
	}
	h := &RefinementRegionHeader{
		Region:     ri,
		Flags:      flags,
		GRTEMPLATE: flags & 0x01,
		TPGRON:     flags&0x02 != 0,
	}
	if h.GRTEMPLATE == 0 {
		if h.GRAT, err = readATPixels(stream, 2); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// genericRegionLength 扫描长度未知的直接通用区域段数据(7.2.7)
// 入参: data 段数据起始处的剩余字节
// 返回: uint32 含结束标记与行数字段的段数据长度, error 错误信息
func genericRegionLength(data []byte) (uint32, error) {
	const infoLen = 17
	if len(data) < infoLen+1 {
		return 0, wrapf(ErrTruncatedStream, "generic region header needs %d bytes, have %d", infoLen+1, len(data))
	}
	flags := data[infoLen]
	start := infoLen + 1
	marker := []byte{0x00, 0x00}
	if flags&0x01 == 0 {
		marker = []byte{0xFF, 0xAC}
		if (flags>>1)&0x03 == 0 {
			start += 8
		} else {
			start += 2
		}
	}
	if start > len(data) {
		return 0, wrapf(ErrTruncatedStream, "generic region header needs %d bytes, have %d", start, len(data))
	}
	idx := bytes.Index(data[start:], marker)
	if idx < 0 {
		return 0, wrapf(ErrTruncatedStream, "no end marker % X in generic region of unknown length", marker)
	}
	end := start + idx + len(marker) + 4
	if end > len(data) {
		return 0, wrapf(ErrTruncatedStream, "generic region row count past end of data")
	}
	return uint32(end), nil
}

// decodeGenericRegion 解码通用区域段(类型36, 38, 39)
func decodeGenericRegion(d *Document, seg *Segment, stream *BitStream) error {
	h, err := ParseGenericRegionHeader(seg.Header, stream)
	if err != nil {
		return err
	}
	grd := NewGRDProc()
	grd.MMR = h.MMR
	grd.GBW = h.Region.Width
	grd.GBH = h.Region.Height
	grd.GBTEMPLATE = h.GBTEMPLATE
	grd.TPGDON = h.TPGDON
	grd.MaxPixels = d.maxPixels
	flattenAT(h.GBAT, grd.GBAT[:])
	data := stream.GetPointer()
	if seg.Header.UnknownLength() {
		if len(seg.data) < 4 {
			return wrapf(ErrTruncatedStream, "generic region row count missing")
		}
		rows := binary.BigEndian.Uint32(seg.data[len(seg.data)-4:])
		if h.Region.Height != unknownLength && rows > h.Region.Height {
			return wrapf(ErrMalformedRegion, "row count %d exceeds region height %d", rows, h.Region.Height)
		}
		grd.GBH = rows
		h.Region.Height = rows
		data = data[:len(data)-4]
	}
	tracer().Debugf("segment %d: generic region %dx%d at (%d,%d), mmr=%v template=%d", seg.Number(), grd.GBW, grd.GBH, h.Region.X, h.Region.Y, grd.MMR, grd.GBTEMPLATE)
	var img *Image
	if grd.MMR {
		img, err = grd.DecodeMMR(data)
	} else {
		img, err = grd.DecodeArith(NewArithDecoder(NewBitStream(data)), newArithCtxs(genericContextSize(grd.GBTEMPLATE)))
	}
	if err != nil {
		return err
	}
	return d.placeRegion(seg, img, h.Region)
}

// decodeRefinementRegion 解码通用细化区域段(类型40, 42, 43)
func decodeRefinementRegion(d *Document, seg *Segment, stream *BitStream) error {
	h, err := ParseRefinementRegionHeader(seg.Header, stream)
	if err != nil {
		return err
	}
	grrd := NewGRRDProc()
	grrd.GRW = h.Region.Width
	grrd.GRH = h.Region.Height
	grrd.GRTEMPLATE = h.GRTEMPLATE
	grrd.TPGRON = h.TPGRON
	grrd.MaxPixels = d.maxPixels
	flattenAT(h.GRAT, grrd.GRAT[:])
	if grrd.GRREFERENCE, err = d.refinementReference(seg, h.Region); err != nil {
		return err
	}
	img, err := grrd.Decode(NewArithDecoder(stream), newArithCtxs(refinementContextSize(grrd.GRTEMPLATE)))
	if err != nil {
		return err
	}
	return d.placeRegion(seg, img, h.Region)
}

// refinementReference 获取细化参考位图: 被引用的中间区域结果, 无引用时取页面对应区域
func (d *Document) refinementReference(seg *Segment, ri RegionInfo) (*Image, error) {
	if seg.Header.ReferredSegmentCount == 0 {
		if d.page == nil {
			return nil, wrapf(ErrMalformedRegion, "refinement of page region outside a page")
		}
		return d.page.subImage(ri)
	}
	referred, err := d.referred(seg.Header)
	if err != nil {
		return nil, err
	}
	for _, ref := range referred {
		if ref.ResultType == ResultRegion && ref.Region != nil {
			return ref.Region, nil
		}
	}
	return nil, wrapf(ErrDanglingReference, "no intermediate region among referred segments")
}

// placeRegion 直接区域合成到页面, 中间区域保存为段结果
func (d *Document) placeRegion(seg *Segment, img *Image, ri RegionInfo) error {
	if !seg.Type().isImmediateRegion() {
		seg.ResultType = ResultRegion
		seg.Region = img
		seg.RegionInfo = ri
		return nil
	}
	if d.page == nil {
		return wrapf(ErrMalformedRegion, "region segment outside a page")
	}
	return d.page.compose(img, ri)
}
