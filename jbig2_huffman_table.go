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

// lineKind 霍夫曼表行类型
type lineKind uint8

const (
	lineNormal lineKind = iota
	lineLower
	lineUpper
	lineOOB
)

// HuffmanLine 霍夫曼表行
type HuffmanLine struct {
	PrefLen  uint8
	RangeLen uint8
	RangeLow int32
	kind     lineKind
	code     uint32
}

// HuffmanTable 霍夫曼表, 构造完成后只读
type HuffmanTable struct {
	HTOOB bool
	lines []HuffmanLine
	index map[uint64]int
}

// newHuffmanTable 分配前缀码并建立查找索引
// 入参: lines 表行, htoob 是否含OOB行
// 返回: *HuffmanTable 霍夫曼表, error 错误信息
func newHuffmanTable(lines []HuffmanLine, htoob bool) (*HuffmanTable, error) {
	if err := assignCodes(lines); err != nil {
		return nil, err
	}
	ht := &HuffmanTable{HTOOB: htoob, lines: lines, index: make(map[uint64]int, len(lines))}
	for i, l := range lines {
		if l.PrefLen > 0 {
			ht.index[uint64(l.PrefLen)<<32|uint64(l.code)] = i
		}
	}
	return ht, nil
}

// lookup 查找与给定长度和前缀码匹配的表行
func (h *HuffmanTable) lookup(n uint8, code uint32) (*HuffmanLine, bool) {
	i, ok := h.index[uint64(n)<<32|uint64(code)]
	if !ok {
		return nil, false
	}
	return &h.lines[i], true
}

// Lines 获取表行
// 返回: []HuffmanLine 表行
func (h *HuffmanTable) Lines() []HuffmanLine {
	return h.lines
}

// TableSelector 霍夫曼表选择
type TableSelector uint8

const (
	// TableCustom 自定义表, 取自引用的表段
	TableCustom TableSelector = 0
)

// String 返回 "B.n" 或 "custom"
func (s TableSelector) String() string {
	if s == TableCustom {
		return "custom"
	}
	return fmt.Sprintf("B.%d", uint8(s))
}

// tableLine 标准表行定义
type tableLine struct {
	prefLen  uint8
	rangeLen uint8
	rangeLow int32
}

// standardTableDef 标准表定义, 末尾依次为下界行, 上界行, 以及可选的OOB行
type standardTableDef struct {
	htoob bool
	lines []tableLine
}

// standardTables 附录B.5的标准表B.1至B.15, 前缀长度0的下界或上界行为占位行
var standardTables = [16]standardTableDef{
	{},
	{false, []tableLine{{1, 4, 0}, {2, 8, 16}, {3, 16, 272}, {0, 32, -1}, {3, 32, 65808}}},
	{true, []tableLine{{1, 0, 0}, {2, 0, 1}, {3, 0, 2}, {4, 3, 3}, {5, 6, 11}, {0, 32, -1}, {6, 32, 75}, {6, 0, 0}}},
	{true, []tableLine{{8, 8, -256}, {1, 0, 0}, {2, 0, 1}, {3, 0, 2}, {4, 3, 3}, {5, 6, 11}, {8, 32, -257}, {7, 32, 75}, {6, 0, 0}}},
	{false, []tableLine{{1, 0, 1}, {2, 0, 2}, {3, 0, 3}, {4, 3, 4}, {5, 6, 12}, {0, 32, -1}, {5, 32, 76}}},
	{false, []tableLine{{7, 8, -255}, {1, 0, 1}, {2, 0, 2}, {3, 0, 3}, {4, 3, 4}, {5, 6, 12}, {7, 32, -256}, {6, 32, 76}}},
	{false, []tableLine{{5, 10, -2048}, {4, 9, -1024}, {4, 8, -512}, {4, 7, -256}, {5, 6, -128}, {5, 5, -64}, {4, 5, -32}, {2, 7, 0}, {3, 7, 128}, {3, 8, 256}, {4, 9, 512}, {4, 10, 1024}, {6, 32, -2049}, {6, 32, 2048}}},
	{false, []tableLine{{4, 9, -1024}, {3, 8, -512}, {4, 7, -256}, {5, 6, -128}, {5, 5, -64}, {4, 5, -32}, {4, 5, 0}, {5, 5, 32}, {5, 6, 64}, {4, 7, 128}, {3, 8, 256}, {3, 9, 512}, {3, 10, 1024}, {5, 32, -1025}, {5, 32, 2048}}},
	{true, []tableLine{{8, 3, -15}, {9, 1, -7}, {8, 1, -5}, {9, 0, -3}, {7, 0, -2}, {4, 0, -1}, {2, 1, 0}, {5, 0, 2}, {6, 0, 3}, {3, 4, 4}, {6, 1, 20}, {4, 4, 22}, {4, 5, 38}, {5, 6, 70}, {5, 7, 134}, {6, 7, 262}, {7, 8, 390}, {6, 10, 646}, {9, 32, -16}, {9, 32, 1670}, {2, 0, 0}}},
	{true, []tableLine{{8, 4, -31}, {9, 2, -15}, {8, 2, -11}, {9, 1, -7}, {7, 1, -5}, {4, 1, -3}, {3, 1, -1}, {3, 1, 1}, {5, 1, 3}, {6, 1, 5}, {3, 5, 7}, {6, 2, 39}, {4, 5, 43}, {4, 6, 75}, {5, 7, 139}, {5, 8, 267}, {6, 8, 523}, {7, 9, 779}, {6, 11, 1291}, {9, 32, -32}, {9, 32, 3339}, {2, 0, 0}}},
	{true, []tableLine{{7, 4, -21}, {8, 0, -5}, {7, 0, -4}, {5, 0, -3}, {2, 2, -2}, {5, 0, 2}, {6, 0, 3}, {7, 0, 4}, {8, 0, 5}, {2, 6, 6}, {5, 5, 70}, {6, 5, 102}, {6, 6, 134}, {6, 7, 198}, {6, 8, 326}, {6, 9, 582}, {6, 10, 1094}, {7, 11, 2118}, {8, 32, -22}, {8, 32, 4166}, {2, 0, 0}}},
	{false, []tableLine{{1, 0, 1}, {2, 1, 2}, {4, 0, 4}, {4, 1, 5}, {5, 1, 7}, {5, 2, 9}, {6, 2, 13}, {7, 2, 17}, {7, 3, 21}, {7, 4, 29}, {7, 5, 45}, {7, 6, 77}, {0, 32, 0}, {7, 32, 141}}},
	{false, []tableLine{{1, 0, 1}, {2, 0, 2}, {3, 1, 3}, {5, 0, 5}, {5, 1, 6}, {6, 1, 8}, {7, 0, 10}, {7, 1, 11}, {7, 2, 13}, {7, 3, 17}, {7, 4, 25}, {8, 5, 41}, {0, 32, 0}, {8, 32, 73}}},
	{false, []tableLine{{1, 0, 1}, {3, 0, 2}, {4, 0, 3}, {5, 0, 4}, {4, 1, 5}, {3, 3, 7}, {6, 1, 15}, {6, 2, 17}, {6, 3, 21}, {6, 4, 29}, {6, 5, 45}, {7, 6, 77}, {0, 32, 0}, {7, 32, 141}}},
	{false, []tableLine{{3, 0, -2}, {3, 0, -1}, {1, 0, 0}, {3, 0, 1}, {3, 0, 2}, {0, 32, -3}, {0, 32, 3}}},
	{false, []tableLine{{7, 4, -24}, {6, 2, -8}, {5, 1, -4}, {4, 0, -2}, {3, 0, -1}, {1, 0, 0}, {3, 0, 1}, {4, 0, 2}, {5, 1, 3}, {6, 2, 5}, {7, 4, 9}, {7, 32, -25}, {7, 32, 25}}},
}

// NewStandardTable 构造标准表B.n
// 入参: n 表编号(1至15)
// 返回: *HuffmanTable 霍夫曼表, error 错误信息
func NewStandardTable(n int) (*HuffmanTable, error) {
	if n < 1 || n >= len(standardTables) {
		return nil, fmt.Errorf("jbig2: no standard huffman table B.%d", n)
	}
	def := standardTables[n]
	count := len(def.lines)
	tail := 2
	if def.htoob {
		tail = 3
	}
	lines := make([]HuffmanLine, count)
	for i, l := range def.lines {
		lines[i] = HuffmanLine{PrefLen: l.prefLen, RangeLen: l.rangeLen, RangeLow: l.rangeLow}
		switch i {
		case count - tail:
			lines[i].kind = lineLower
		case count - tail + 1:
			lines[i].kind = lineUpper
		case count - 1:
			if def.htoob {
				lines[i].kind = lineOOB
			}
		}
	}
	return newHuffmanTable(lines, def.htoob)
}

// standardTableSet 标准表集合, 每个解码过程持有一份
type standardTableSet struct {
	tables [16]*HuffmanTable
}

// newStandardTableSet 构造全部标准表
// 返回: *standardTableSet 标准表集合, error 错误信息
func newStandardTableSet() (*standardTableSet, error) {
	s := &standardTableSet{}
	for n := 1; n < len(standardTables); n++ {
		ht, err := NewStandardTable(n)
		if err != nil {
			return nil, err
		}
		s.tables[n] = ht
	}
	return s, nil
}

// get 获取标准表B.n
// 入参: n 表编号
// 返回: *HuffmanTable 霍夫曼表
func (s *standardTableSet) get(n int) *HuffmanTable {
	return s.tables[n]
}

// ParseHuffmanTable 解析表段(类型53)中的自定义霍夫曼表(B.2)
// 入参: stream 段数据位流
// 返回: *HuffmanTable 霍夫曼表, error 错误信息
func ParseHuffmanTable(stream *BitStream) (*HuffmanTable, error) {
	flags, err := stream.Read1Byte()
	if err != nil {
		return nil, err
	}
	htoob := flags&0x01 != 0
	htps := uint32((flags>>1)&0x07) + 1
	htrs := uint32((flags>>4)&0x07) + 1
	low, err := stream.ReadInteger()
	if err != nil {
		return nil, err
	}
	high, err := stream.ReadInteger()
	if err != nil {
		return nil, err
	}
	htLow, htHigh := int32(low), int32(high)
	if htLow >= htHigh {
		return nil, fmt.Errorf("jbig2: huffman table range [%d, %d) is empty", htLow, htHigh)
	}
	var lines []HuffmanLine
	readPrefLen := func() (uint8, error) {
		v, err := stream.ReadNBits(htps)
		return uint8(v), err
	}
	cur := int64(htLow)
	for cur < int64(htHigh) {
		prefLen, err := readPrefLen()
		if err != nil {
			return nil, err
		}
		rangeLen, err := stream.ReadNBits(htrs)
		if err != nil {
			return nil, err
		}
		if rangeLen > 32 {
			return nil, fmt.Errorf("jbig2: huffman table range length %d", rangeLen)
		}
		lines = append(lines, HuffmanLine{PrefLen: prefLen, RangeLen: uint8(rangeLen), RangeLow: int32(cur)})
		cur += int64(1) << rangeLen
	}
	prefLen, err := readPrefLen()
	if err != nil {
		return nil, err
	}
	lines = append(lines, HuffmanLine{PrefLen: prefLen, RangeLen: 32, RangeLow: htLow - 1, kind: lineLower})
	if prefLen, err = readPrefLen(); err != nil {
		return nil, err
	}
	lines = append(lines, HuffmanLine{PrefLen: prefLen, RangeLen: 32, RangeLow: htHigh, kind: lineUpper})
	if htoob {
		if prefLen, err = readPrefLen(); err != nil {
			return nil, err
		}
		lines = append(lines, HuffmanLine{PrefLen: prefLen, kind: lineOOB})
	}
	return newHuffmanTable(lines, htoob)
}

// buildSymbolIDTable 解析文本区域的符号ID霍夫曼码表(7.4.3.1.7), 读取完毕后字节对齐
// 入参: stream 位流, numSyms 符号数量
// 返回: *HuffmanTable 霍夫曼表, error 错误信息
func buildSymbolIDTable(stream *BitStream, numSyms uint32) (*HuffmanTable, error) {
	var runCodes [35]HuffmanLine
	for i := range runCodes {
		v, err := stream.ReadNBits(4)
		if err != nil {
			return nil, err
		}
		runCodes[i] = HuffmanLine{PrefLen: uint8(v), RangeLow: int32(i)}
	}
	runTable, err := newHuffmanTable(runCodes[:], false)
	if err != nil {
		return nil, err
	}
	dec := NewHuffmanDecoder(stream)
	lines := make([]HuffmanLine, 0, numSyms)
	for uint32(len(lines)) < numSyms {
		code, _, err := dec.Decode(runTable)
		if err != nil {
			return nil, err
		}
		var prefLen uint8
		var repeat uint32
		switch {
		case code < 32:
			prefLen, repeat = uint8(code), 1
		case code == 32:
			if len(lines) == 0 {
				return nil, fmt.Errorf("jbig2: symbol id run code 32 without previous length")
			}
			bits, err := stream.ReadNBits(2)
			if err != nil {
				return nil, err
			}
			prefLen, repeat = lines[len(lines)-1].PrefLen, bits+3
		case code == 33:
			bits, err := stream.ReadNBits(3)
			if err != nil {
				return nil, err
			}
			repeat = bits + 3
		default:
			bits, err := stream.ReadNBits(7)
			if err != nil {
				return nil, err
			}
			repeat = bits + 11
		}
		if uint32(len(lines))+repeat > numSyms {
			return nil, fmt.Errorf("jbig2: symbol id code lengths overrun %d symbols", numSyms)
		}
		for ; repeat > 0; repeat-- {
			lines = append(lines, HuffmanLine{PrefLen: prefLen, RangeLow: int32(len(lines))})
		}
	}
	stream.AlignByte()
	return newHuffmanTable(lines, false)
}

// assignCodes 按B.3分配规范前缀码
// 入参: lines 表行
// 返回: error 错误信息
func assignCodes(lines []HuffmanLine) error {
	var maxLen uint8
	for _, l := range lines {
		maxLen = max(maxLen, l.PrefLen)
	}
	if maxLen > 32 {
		return fmt.Errorf("jbig2: huffman prefix length %d exceeds 32", maxLen)
	}
	lenCount := make([]uint32, int(maxLen)+1)
	for _, l := range lines {
		if l.PrefLen > 0 {
			lenCount[l.PrefLen]++
		}
	}
	var firstCode uint64
	for curLen := uint8(1); curLen <= maxLen; curLen++ {
		firstCode = (firstCode + uint64(lenCount[curLen-1])) << 1
		code := firstCode
		for i := range lines {
			if lines[i].PrefLen == curLen {
				if code >= uint64(1)<<curLen {
					return fmt.Errorf("jbig2: huffman code lengths oversubscribed at length %d", curLen)
				}
				lines[i].code = uint32(code)
				code++
			}
		}
	}
	return nil
}
