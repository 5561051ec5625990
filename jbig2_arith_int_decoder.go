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

// intPrefix 整数解码前缀区间: 值位数与偏移
type intPrefix struct {
	bits   int
	offset int32
}

// intPrefixes 按前缀中1的个数索引的区间
var intPrefixes = [6]intPrefix{
	{2, 0}, {4, 4}, {6, 20}, {8, 84}, {12, 340}, {32, 4436},
}

// ArithIntDecoder 算术整数解码器(IAx), 每个实例拥有512个上下文
type ArithIntDecoder struct {
	ctx []ArithCtx
}

// NewArithIntDecoder 创建算术整数解码器
// 返回: *ArithIntDecoder 解码器对象
func NewArithIntDecoder() *ArithIntDecoder {
	return &ArithIntDecoder{ctx: newArithCtxs(512)}
}

// Decode 解码一个整数
// 入参: ad 算术解码器
// 返回: int32 结果, bool 为false时表示OOB
func (d *ArithIntDecoder) Decode(ad *ArithDecoder) (int32, bool) {
	prev := 1
	next := func() int {
		bit := ad.Decode(&d.ctx[prev])
		if prev < 256 {
			prev = (prev << 1) | bit
		} else {
			prev = (((prev << 1) | bit) & 511) | 256
		}
		return bit
	}
	sign := next()
	depth := 0
	for depth < len(intPrefixes)-1 && next() == 1 {
		depth++
	}
	var v uint32
	for i := 0; i < intPrefixes[depth].bits; i++ {
		v = (v << 1) | uint32(next())
	}
	val := intPrefixes[depth].offset + int32(v)
	if sign == 1 {
		if val == 0 {
			return 0, false
		}
		return -val, true
	}
	return val, true
}

// ArithIaidDecoder 符号ID算术解码器(IAID)
type ArithIaidDecoder struct {
	ctx     []ArithCtx
	codeLen uint8
}

// NewArithIaidDecoder 创建符号ID解码器
// 入参: codeLen 符号编码位数(SBSYMCODELEN)
// 返回: *ArithIaidDecoder 解码器对象
func NewArithIaidDecoder(codeLen uint8) *ArithIaidDecoder {
	return &ArithIaidDecoder{ctx: newArithCtxs(1 << codeLen), codeLen: codeLen}
}

// Decode 解码一个符号ID
// 入参: ad 算术解码器
// 返回: uint32 符号ID
func (d *ArithIaidDecoder) Decode(ad *ArithDecoder) uint32 {
	prev := 1
	for i := uint8(0); i < d.codeLen; i++ {
		prev = (prev << 1) | ad.Decode(&d.ctx[prev])
	}
	return uint32(prev - (1 << d.codeLen))
}
