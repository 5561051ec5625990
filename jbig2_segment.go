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

// SegmentType 段类型(7.3)
type SegmentType uint8

const (
	SegmentSymbolDictionary                  SegmentType = 0
	SegmentIntermediateTextRegion            SegmentType = 4
	SegmentImmediateTextRegion               SegmentType = 6
	SegmentImmediateLosslessTextRegion       SegmentType = 7
	SegmentPatternDictionary                 SegmentType = 16
	SegmentIntermediateHalftoneRegion        SegmentType = 20
	SegmentImmediateHalftoneRegion           SegmentType = 22
	SegmentImmediateLosslessHalftoneRegion   SegmentType = 23
	SegmentIntermediateGenericRegion         SegmentType = 36
	SegmentImmediateGenericRegion            SegmentType = 38
	SegmentImmediateLosslessGenericRegion    SegmentType = 39
	SegmentIntermediateRefinementRegion      SegmentType = 40
	SegmentImmediateRefinementRegion         SegmentType = 42
	SegmentImmediateLosslessRefinementRegion SegmentType = 43
	SegmentPageInformation                   SegmentType = 48
	SegmentEndOfPage                         SegmentType = 49
	SegmentEndOfStripe                       SegmentType = 50
	SegmentEndOfFile                         SegmentType = 51
	SegmentProfiles                          SegmentType = 52
	SegmentTables                            SegmentType = 53
	SegmentExtension                         SegmentType = 62
)

var segmentTypeNames = map[SegmentType]string{
	SegmentSymbolDictionary:                  "symbol dictionary",
	SegmentIntermediateTextRegion:            "intermediate text region",
	SegmentImmediateTextRegion:               "immediate text region",
	SegmentImmediateLosslessTextRegion:       "immediate lossless text region",
	SegmentPatternDictionary:                 "pattern dictionary",
	SegmentIntermediateHalftoneRegion:        "intermediate halftone region",
	SegmentImmediateHalftoneRegion:           "immediate halftone region",
	SegmentImmediateLosslessHalftoneRegion:   "immediate lossless halftone region",
	SegmentIntermediateGenericRegion:         "intermediate generic region",
	SegmentImmediateGenericRegion:            "immediate generic region",
	SegmentImmediateLosslessGenericRegion:    "immediate lossless generic region",
	SegmentIntermediateRefinementRegion:      "intermediate generic refinement region",
	SegmentImmediateRefinementRegion:         "immediate generic refinement region",
	SegmentImmediateLosslessRefinementRegion: "immediate lossless generic refinement region",
	SegmentPageInformation:                   "page information",
	SegmentEndOfPage:                         "end of page",
	SegmentEndOfStripe:                       "end of stripe",
	SegmentEndOfFile:                         "end of file",
	SegmentProfiles:                          "profiles",
	SegmentTables:                            "tables",
	SegmentExtension:                         "extension",
}

func (t SegmentType) String() string {
	if name, ok := segmentTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SegmentType(%d)", uint8(t))
}

// isImmediateRegion 是否为直接合成到页面的区域段
func (t SegmentType) isImmediateRegion() bool {
	switch t {
	case SegmentImmediateTextRegion, SegmentImmediateLosslessTextRegion,
		SegmentImmediateGenericRegion, SegmentImmediateLosslessGenericRegion,
		SegmentImmediateRefinementRegion, SegmentImmediateLosslessRefinementRegion:
		return true
	}
	return false
}

// SegmentHeader 段头(7.2)
type SegmentHeader struct {
	Number               uint32
	Type                 SegmentType
	PageAssociationSize  uint8
	DeferredNonRetain    bool
	ReferredSegmentCount uint32
	RetentionFlags       []byte
	ReferredSegments     []uint32
	PageAssociation      uint32
	DataLength           uint32
	HeaderLength         uint32
	Offset               uint32
}

// UnknownLength 数据长度是否未知
// 返回: bool 是否未知
func (h *SegmentHeader) UnknownLength() bool {
	return h.DataLength == unknownLength
}

// referredSegmentWidth 被引用段编号的字节宽度
// 入参: number 当前段编号
// 返回: int 字节宽度
func referredSegmentWidth(number uint32) int {
	switch {
	case number <= 256:
		return 1
	case number <= 65536:
		return 2
	}
	return 4
}

// ParseSegmentHeader 解析段头
// 入参: stream 位流, 从段头第一个字节开始
// 返回: *SegmentHeader 段头, error 错误信息
func ParseSegmentHeader(stream *BitStream) (*SegmentHeader, error) {
	stream.AlignByte()
	h := &SegmentHeader{Offset: stream.GetOffset(), PageAssociationSize: 1}
	var err error
	if h.Number, err = stream.ReadInteger(); err != nil {
		return nil, err
	}
	flags, err := stream.Read1Byte()
	if err != nil {
		return nil, err
	}
	h.Type = SegmentType(flags & 0x3F)
	if flags&0x40 != 0 {
		h.PageAssociationSize = 4
	}
	h.DeferredNonRetain = flags&0x80 != 0
	countByte, err := stream.Read1Byte()
	if err != nil {
		return nil, err
	}
	switch count := countByte >> 5; count {
	case 5, 6:
		return nil, wrapf(ErrMalformedSegmentHeader, "segment %d: referred-to segment count field %d", h.Number, count)
	case 7:
		stream.SetOffset(stream.GetOffset() - 1)
		long, err := stream.ReadInteger()
		if err != nil {
			return nil, err
		}
		h.ReferredSegmentCount = long & 0x1FFFFFFF
		if h.ReferredSegmentCount > maxReferredSegments {
			return nil, wrapf(ErrMalformedSegmentHeader, "segment %d: %d referred-to segments", h.Number, h.ReferredSegmentCount)
		}
		if h.RetentionFlags, err = stream.ReadBytes((h.ReferredSegmentCount + 8) / 8); err != nil {
			return nil, err
		}
	default:
		h.ReferredSegmentCount = uint32(count)
		h.RetentionFlags = []byte{countByte & 0x1F}
	}
	width := referredSegmentWidth(h.Number)
	if uint64(h.ReferredSegmentCount)*uint64(width) > uint64(stream.GetByteLeft()) {
		return nil, wrapf(ErrTruncatedStream, "segment %d: %d referred-to segment numbers", h.Number, h.ReferredSegmentCount)
	}
	h.ReferredSegments = make([]uint32, h.ReferredSegmentCount)
	for i := range h.ReferredSegments {
		var ref uint32
		switch width {
		case 1:
			var v uint8
			v, err = stream.Read1Byte()
			ref = uint32(v)
		case 2:
			var v uint16
			v, err = stream.ReadShortInteger()
			ref = uint32(v)
		default:
			ref, err = stream.ReadInteger()
		}
		if err != nil {
			return nil, err
		}
		if ref >= h.Number {
			return nil, wrapf(ErrDanglingReference, "segment %d refers to segment %d", h.Number, ref)
		}
		h.ReferredSegments[i] = ref
	}
	if h.PageAssociationSize == 4 {
		h.PageAssociation, err = stream.ReadInteger()
	} else {
		var v uint8
		v, err = stream.Read1Byte()
		h.PageAssociation = uint32(v)
	}
	if err != nil {
		return nil, err
	}
	if h.DataLength, err = stream.ReadInteger(); err != nil {
		return nil, err
	}
	h.HeaderLength = stream.GetOffset() - h.Offset
	return h, nil
}

// ResultType 段解码结果类型
type ResultType uint8

const (
	ResultNone ResultType = iota
	ResultSymbolDict
	ResultRegion
	ResultHuffmanTable
	ResultPageInfo
	ResultEndOfStripe
	ResultComments
)

// Segment 段, 由段头与解码结果组成
type Segment struct {
	Header     *SegmentHeader
	ResultType ResultType
	SymbolDict *SymbolDict
	Region     *Image
	RegionInfo RegionInfo
	Table      *HuffmanTable
	PageInfo   *PageInfo
	StripeEndY uint32
	Comments   []Comment
	data       []byte
}

// Number 获取段编号
// 返回: uint32 段编号
func (s *Segment) Number() uint32 {
	return s.Header.Number
}

// Type 获取段类型
// 返回: SegmentType 段类型
func (s *Segment) Type() SegmentType {
	return s.Header.Type
}
