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

// ATPixel 自适应模板像素偏移
type ATPixel struct {
	X int8
	Y int8
}

// SymbolDictHeader 符号字典段数据头(7.4.2.1)
type SymbolDictHeader struct {
	Flags           uint16
	SDHUFF          bool
	SDREFAGG        bool
	DH              TableSelector
	DW              TableSelector
	BMSIZE          TableSelector
	AGGINST         TableSelector
	ContextUsed     bool
	ContextRetained bool
	SDTEMPLATE      uint8
	SDRTEMPLATE     uint8
	SDAT            []ATPixel
	SDRAT           []ATPixel
	SDNUMEXSYMS     uint32
	SDNUMNEWSYMS    uint32
}

// ParseSymbolDictHeader 解析符号字典段数据头
// 入参: header 段头, stream 段数据位流
// 返回: *SymbolDictHeader 数据头, error 错误信息
func ParseSymbolDictHeader(header *SegmentHeader, stream *BitStream) (*SymbolDictHeader, error) {
	flags, err := stream.ReadShortInteger()
	if err != nil {
		return nil, err
	}
	h := &SymbolDictHeader{
		Flags:           flags,
		SDHUFF:          flags&0x0001 != 0,
		SDREFAGG:        flags&0x0002 != 0,
		ContextUsed:     flags&0x0100 != 0,
		ContextRetained: flags&0x0200 != 0,
		SDTEMPLATE:      uint8((flags >> 10) & 0x03),
		SDRTEMPLATE:     uint8((flags >> 12) & 0x01),
	}
	dh, dw := (flags>>2)&0x03, (flags>>4)&0x03
	if h.SDHUFF && (dh == 2 || dw == 2) {
		return nil, wrapf(ErrMalformedSymbolDictionary, "segment %d: reserved huffman table selection (DH %d, DW %d)", header.Number, dh, dw)
	}
	h.DH = pickSelector(dh, 4, 5)
	h.DW = pickSelector(dw, 2, 3)
	h.BMSIZE = pickSelector((flags>>6)&0x01, 1)
	h.AGGINST = pickSelector((flags>>7)&0x01, 1)
	if !h.SDHUFF {
		n := 1
		if h.SDTEMPLATE == 0 {
			n = 4
		}
		if h.SDAT, err = readATPixels(stream, n); err != nil {
			return nil, err
		}
	}
	if h.SDREFAGG && h.SDRTEMPLATE == 0 {
		if h.SDRAT, err = readATPixels(stream, 2); err != nil {
			return nil, err
		}
	}
	if h.SDNUMEXSYMS, err = stream.ReadInteger(); err != nil {
		return nil, err
	}
	if h.SDNUMNEWSYMS, err = stream.ReadInteger(); err != nil {
		return nil, err
	}
	if h.SDNUMNEWSYMS > maxNewSymbols {
		return nil, wrapf(ErrMalformedSymbolDictionary, "segment %d: %d new symbols", header.Number, h.SDNUMNEWSYMS)
	}
	return h, nil
}

// pickSelector 将标志位字段映射为表选择, 超出列表的取值表示自定义表
// 入参: v 字段值, tables 各取值对应的标准表
// 返回: TableSelector 表选择
func pickSelector(v uint16, tables ...TableSelector) TableSelector {
	if int(v) < len(tables) {
		return tables[v]
	}
	return TableCustom
}

// readATPixels 读取n对AT像素偏移
func readATPixels(stream *BitStream, n int) ([]ATPixel, error) {
	at := make([]ATPixel, n)
	for i := range at {
		p, err := stream.ReadBytes(2)
		if err != nil {
			return nil, err
		}
		at[i] = ATPixel{X: int8(p[0]), Y: int8(p[1])}
	}
	return at, nil
}

// flattenAT 将AT像素展开为x, y交替的数组
func flattenAT(at []ATPixel, dst []int8) {
	for i, p := range at {
		if 2*i+1 >= len(dst) {
			return
		}
		dst[2*i] = p.X
		dst[2*i+1] = p.Y
	}
}

// SymbolDict 符号字典, 解码完成后只读
type SymbolDict struct {
	Symbols    []*Image
	gbContexts []ArithCtx
	grContexts []ArithCtx
	gbTemplate uint8
	grTemplate uint8
}

// NumSymbols 获取导出符号数量
// 返回: int 符号数量
func (s *SymbolDict) NumSymbols() int {
	return len(s.Symbols)
}

// Symbol 获取导出符号
// 入参: index 索引
// 返回: *Image 符号位图
func (s *SymbolDict) Symbol(index int) *Image {
	if index < 0 || index >= len(s.Symbols) {
		return nil
	}
	return s.Symbols[index]
}
