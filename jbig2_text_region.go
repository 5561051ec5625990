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

// Corner 文本区域参考角
type Corner uint8

const (
	CornerBottomLeft  Corner = 0
	CornerTopLeft     Corner = 1
	CornerBottomRight Corner = 2
	CornerTopRight    Corner = 3
)

func (c Corner) String() string {
	switch c {
	case CornerBottomLeft:
		return "bottom-left"
	case CornerTopLeft:
		return "top-left"
	case CornerBottomRight:
		return "bottom-right"
	}
	return "top-right"
}

// TextRegionHeader 文本区域段数据头(7.4.3.1)
type TextRegionHeader struct {
	Region         RegionInfo
	Flags          uint16
	SBHUFF         bool
	SBREFINE       bool
	LOGSBSTRIPS    uint8
	REFCORNER      Corner
	TRANSPOSED     bool
	SBCOMBOP       ComposeOp
	SBDEFPIXEL     bool
	SBDSOFFSET     int32
	SBRTEMPLATE    uint8
	HuffmanFlags   uint16
	FS             TableSelector
	DS             TableSelector
	DT             TableSelector
	RDW            TableSelector
	RDH            TableSelector
	RDX            TableSelector
	RDY            TableSelector
	RSIZE          TableSelector
	SBRAT          []ATPixel
	SBNUMINSTANCES uint32
}

// ParseTextRegionHeader 解析文本区域段数据头
// 入参: header 段头, stream 段数据位流
// 返回: *TextRegionHeader 数据头, error 错误信息
func ParseTextRegionHeader(header *SegmentHeader, stream *BitStream) (*TextRegionHeader, error) {
	ri, err := parseRegionInfo(stream)
	if err != nil {
		return nil, err
	}
	flags, err := stream.ReadShortInteger()
	if err != nil {
		return nil, err
	}
	h := &TextRegionHeader{
		Region:      ri,
		Flags:       flags,
		SBHUFF:      flags&0x0001 != 0,
		SBREFINE:    flags&0x0002 != 0,
		LOGSBSTRIPS: uint8((flags >> 2) & 0x03),
		REFCORNER:   Corner((flags >> 4) & 0x03),
		TRANSPOSED:  flags&0x0040 != 0,
		SBCOMBOP:    ComposeOp((flags >> 7) & 0x03),
		SBDEFPIXEL:  flags&0x0200 != 0,
		SBRTEMPLATE: uint8((flags >> 15) & 0x01),
	}
	h.SBDSOFFSET = int32((flags >> 10) & 0x1F)
	if h.SBDSOFFSET >= 16 {
		h.SBDSOFFSET -= 32
	}
	if h.SBHUFF {
		if h.HuffmanFlags, err = stream.ReadShortInteger(); err != nil {
			return nil, err
		}
		hf := h.HuffmanFlags
		fs, rdw, rdh, rdx, rdy := hf&0x03, (hf>>6)&0x03, (hf>>8)&0x03, (hf>>10)&0x03, (hf>>12)&0x03
		if fs == 2 || rdw == 2 || rdh == 2 || rdx == 2 || rdy == 2 {
			return nil, wrapf(ErrMalformedTextRegion, "segment %d: reserved huffman table selection 0x%04x", header.Number, hf)
		}
		h.FS = pickSelector(fs, 6, 7)
		h.DS = pickSelector((hf>>2)&0x03, 8, 9, 10)
		h.DT = pickSelector((hf>>4)&0x03, 11, 12, 13)
		h.RDW = pickSelector(rdw, 14, 15)
		h.RDH = pickSelector(rdh, 14, 15)
		h.RDX = pickSelector(rdx, 14, 15)
		h.RDY = pickSelector(rdy, 14, 15)
		h.RSIZE = pickSelector((hf>>14)&0x01, 1)
	}
	if h.SBREFINE && h.SBRTEMPLATE == 0 {
		if h.SBRAT, err = readATPixels(stream, 2); err != nil {
			return nil, err
		}
	}
	if h.SBNUMINSTANCES, err = stream.ReadInteger(); err != nil {
		return nil, err
	}
	return h, nil
}

// tableSelectors 按自定义表消耗顺序返回文本区域的表选择
func (h *TextRegionHeader) tableSelectors() []TableSelector {
	return []TableSelector{h.FS, h.DS, h.DT, h.RDW, h.RDH, h.RDX, h.RDY, h.RSIZE}
}
