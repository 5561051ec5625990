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

// mqInitialA A寄存器初始值, 同时也是重归一化阈值
const mqInitialA = 0x8000

// mqState MQ编码器状态表项
type mqState struct {
	qe   uint32
	nmps uint8
	nlps uint8
	swap bool
}

// mqStates 47个概率状态
var mqStates = [47]mqState{
	{0x5601, 1, 1, true}, {0x3401, 2, 6, false}, {0x1801, 3, 9, false},
	{0x0AC1, 4, 12, false}, {0x0521, 5, 29, false}, {0x0221, 38, 33, false},
	{0x5601, 7, 6, true}, {0x5401, 8, 14, false}, {0x4801, 9, 14, false},
	{0x3801, 10, 14, false}, {0x3001, 11, 17, false}, {0x2401, 12, 18, false},
	{0x1C01, 13, 20, false}, {0x1601, 29, 21, false}, {0x5601, 15, 14, true},
	{0x5401, 16, 14, false}, {0x5101, 17, 15, false}, {0x4801, 18, 16, false},
	{0x3801, 19, 17, false}, {0x3401, 20, 18, false}, {0x3001, 21, 19, false},
	{0x2801, 22, 19, false}, {0x2401, 23, 20, false}, {0x2201, 24, 21, false},
	{0x1C01, 25, 22, false}, {0x1801, 26, 23, false}, {0x1601, 27, 24, false},
	{0x1401, 28, 25, false}, {0x1201, 29, 26, false}, {0x1101, 30, 27, false},
	{0x0AC1, 31, 28, false}, {0x09C1, 32, 29, false}, {0x08A1, 33, 30, false},
	{0x0521, 34, 31, false}, {0x0441, 35, 32, false}, {0x02A1, 36, 33, false},
	{0x0221, 37, 34, false}, {0x0141, 38, 35, false}, {0x0111, 39, 36, false},
	{0x0085, 40, 37, false}, {0x0049, 41, 38, false}, {0x0025, 42, 39, false},
	{0x0015, 43, 40, false}, {0x0009, 44, 41, false}, {0x0005, 45, 42, false},
	{0x0001, 45, 43, false}, {0x5601, 46, 46, false},
}

// ArithCtx 算术解码上下文, 零值即为初始状态(索引0, MPS为0)
type ArithCtx struct {
	index uint8
	mps   uint8
}

// newArithCtxs 创建一组初始化的上下文
// 入参: n 数量
// 返回: []ArithCtx 上下文数组
func newArithCtxs(n int) []ArithCtx {
	return make([]ArithCtx, n)
}

// cloneArithCtxs 复制上下文数组
// 入参: src 源上下文
// 返回: []ArithCtx 副本
func cloneArithCtxs(src []ArithCtx) []ArithCtx {
	if src == nil {
		return nil
	}
	dst := make([]ArithCtx, len(src))
	copy(dst, src)
	return dst
}

// ArithDecoder MQ算术解码器
type ArithDecoder struct {
	stream *BitStream
	b      uint8
	c      uint32
	a      uint32
	ct     uint32
}

// NewArithDecoder 创建算术解码器并执行INITDEC
// 入参: stream 位流, 从当前字节位置开始解码
// 返回: *ArithDecoder 解码器对象
func NewArithDecoder(stream *BitStream) *ArithDecoder {
	stream.AlignByte()
	ad := &ArithDecoder{stream: stream}
	ad.b = stream.GetCurByteArith()
	ad.c = (uint32(ad.b) ^ 0xFF) << 16
	ad.byteIn()
	ad.c <<= 7
	ad.ct -= 7
	ad.a = mqInitialA
	return ad
}

// Decode 在给定上下文中解码一位
// 入参: cx 上下文
// 返回: int 解码位
func (ad *ArithDecoder) Decode(cx *ArithCtx) int {
	st := &mqStates[cx.index]
	ad.a -= st.qe
	var d int
	if (ad.c >> 16) < ad.a {
		if ad.a&mqInitialA != 0 {
			return int(cx.mps)
		}
		d = ad.exchangeMPS(cx, st)
	} else {
		ad.c -= ad.a << 16
		d = ad.exchangeLPS(cx, st)
		ad.a = st.qe
	}
	ad.renormalize()
	return d
}

// Offset 获取解码器在位流中的当前字节位置
// 返回: uint32 偏移量
func (ad *ArithDecoder) Offset() uint32 {
	return ad.stream.GetOffset()
}

func (ad *ArithDecoder) exchangeMPS(cx *ArithCtx, st *mqState) int {
	if ad.a < st.qe {
		return ad.switchLPS(cx, st)
	}
	d := int(cx.mps)
	cx.index = st.nmps
	return d
}

func (ad *ArithDecoder) exchangeLPS(cx *ArithCtx, st *mqState) int {
	if ad.a < st.qe {
		d := int(cx.mps)
		cx.index = st.nmps
		return d
	}
	return ad.switchLPS(cx, st)
}

func (ad *ArithDecoder) switchLPS(cx *ArithCtx, st *mqState) int {
	d := int(1 - cx.mps)
	if st.swap {
		cx.mps = 1 - cx.mps
	}
	cx.index = st.nlps
	return d
}

// byteIn 读入下一字节, 处理0xFF填充位
func (ad *ArithDecoder) byteIn() {
	if ad.b == 0xFF {
		b1 := ad.stream.GetNextByteArith()
		if b1 > 0x8F {
			ad.ct = 8
			return
		}
		ad.stream.IncByteIdx()
		ad.b = b1
		ad.c += 0xFE00 - (uint32(ad.b) << 9)
		ad.ct = 7
		return
	}
	ad.stream.IncByteIdx()
	ad.b = ad.stream.GetCurByteArith()
	ad.c += 0xFF00 - (uint32(ad.b) << 8)
	ad.ct = 8
}

// renormalize RENORMD
func (ad *ArithDecoder) renormalize() {
	for {
		if ad.ct == 0 {
			ad.byteIn()
		}
		ad.a <<= 1
		ad.c <<= 1
		ad.ct--
		if ad.a&mqInitialA != 0 {
			return
		}
	}
}
