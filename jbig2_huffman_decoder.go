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

// HuffmanDecoder 霍夫曼解码器, 与调用方共享位流游标
type HuffmanDecoder struct {
	stream *BitStream
}

// NewHuffmanDecoder 创建霍夫曼解码器
// 入参: stream 位流
// 返回: *HuffmanDecoder 解码器对象
func NewHuffmanDecoder(stream *BitStream) *HuffmanDecoder {
	return &HuffmanDecoder{stream: stream}
}

// Decode 按表解码一个值
// 入参: table 霍夫曼表
// 返回: int32 结果, bool 为false时表示OOB, error 错误信息
func (h *HuffmanDecoder) Decode(table *HuffmanTable) (int32, bool, error) {
	var code uint32
	for n := uint8(1); n <= 32; n++ {
		bit, err := h.stream.Read1Bit()
		if err != nil {
			return 0, false, err
		}
		code = (code << 1) | bit
		if l, ok := table.lookup(n, code); ok {
			if l.kind == lineOOB {
				return 0, false, nil
			}
			var offset uint32
			if l.RangeLen > 0 {
				if offset, err = h.stream.ReadNBits(uint32(l.RangeLen)); err != nil {
					return 0, false, err
				}
			}
			if l.kind == lineLower {
				return l.RangeLow - int32(offset), true, nil
			}
			return l.RangeLow + int32(offset), true, nil
		}
	}
	return 0, false, fmt.Errorf("jbig2: no huffman code matches 0x%08x", code)
}

// decodeValue 解码一个非OOB值, 遇到OOB视为错误
// 入参: table 霍夫曼表, what 字段名
// 返回: int32 结果, error 错误信息
func (h *HuffmanDecoder) decodeValue(table *HuffmanTable, what string) (int32, error) {
	v, ok, err := h.Decode(table)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("jbig2: unexpected OOB decoding %s", what)
	}
	return v, nil
}
