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

// BitStream 位流, 在不可变字节序列上按位或按字节读取
type BitStream struct {
	data    []byte
	byteIdx uint32
	bitIdx  uint32
}

// NewBitStream 创建位流
// 入参: data 数据源
// 返回: *BitStream 位流对象
func NewBitStream(data []byte) *BitStream {
	return &BitStream{data: data}
}

// ReadNBits 读取指定位数的整数, 高位在前
// 入参: bits 位数, 不超过32
// 返回: uint32 结果, error 错误信息
func (b *BitStream) ReadNBits(bits uint32) (uint32, error) {
	if bits > 32 {
		return 0, wrapf(ErrTruncatedStream, "cannot read %d bits at once", bits)
	}
	if uint64(b.byteIdx)*8+uint64(b.bitIdx)+uint64(bits) > b.lengthInBits() {
		return 0, wrapf(ErrTruncatedStream, "need %d bits at bit %d of %d", bits, b.GetBitPos(), b.lengthInBits())
	}
	var result uint32
	for i := uint32(0); i < bits; i++ {
		result = (result << 1) | uint32((b.data[b.byteIdx]>>(7-b.bitIdx))&0x01)
		b.advanceBit()
	}
	return result, nil
}

// ReadNBitsInt32 读取指定位数的有符号整数
// 入参: bits 位数
// 返回: int32 结果, error 错误信息
func (b *BitStream) ReadNBitsInt32(bits uint32) (int32, error) {
	val, err := b.ReadNBits(bits)
	return int32(val), err
}

// Read1Bit 读取1位
// 返回: uint32 结果, error 错误信息
func (b *BitStream) Read1Bit() (uint32, error) {
	if !b.IsInBounds() {
		return 0, wrapf(ErrTruncatedStream, "need 1 bit at offset %d", b.byteIdx)
	}
	result := uint32((b.data[b.byteIdx] >> (7 - b.bitIdx)) & 0x01)
	b.advanceBit()
	return result, nil
}

// Read1BitBool 读取1位布尔值
// 返回: bool 结果, error 错误信息
func (b *BitStream) Read1BitBool() (bool, error) {
	val, err := b.Read1Bit()
	return val != 0, err
}

// Read1Byte 读取1字节, 未对齐时先对齐到字节边界
// 返回: uint8 结果, error 错误信息
func (b *BitStream) Read1Byte() (uint8, error) {
	b.AlignByte()
	if !b.IsInBounds() {
		return 0, wrapf(ErrTruncatedStream, "need 1 byte at offset %d", b.byteIdx)
	}
	result := b.data[b.byteIdx]
	b.byteIdx++
	return result, nil
}

// ReadInteger 读取4字节大端整数
// 返回: uint32 结果, error 错误信息
func (b *BitStream) ReadInteger() (uint32, error) {
	p, err := b.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3]), nil
}

// ReadShortInteger 读取2字节大端整数
// 返回: uint16 结果, error 错误信息
func (b *BitStream) ReadShortInteger() (uint16, error) {
	p, err := b.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(p[0])<<8 | uint16(p[1]), nil
}

// ReadBytes 按字节对齐读取n个字节, 返回底层数据的只读切片
// 入参: n 字节数
// 返回: []byte 数据, error 错误信息
func (b *BitStream) ReadBytes(n uint32) ([]byte, error) {
	b.AlignByte()
	if uint64(b.byteIdx)+uint64(n) > uint64(len(b.data)) {
		return nil, wrapf(ErrTruncatedStream, "need %d bytes at offset %d, have %d", n, b.byteIdx, b.GetByteLeft())
	}
	p := b.data[b.byteIdx : b.byteIdx+n : b.byteIdx+n]
	b.byteIdx += n
	return p, nil
}

// AlignByte 字节对齐
func (b *BitStream) AlignByte() {
	if b.bitIdx != 0 {
		b.AddOffset(1)
	}
}

// GetCurByte 获取当前字节
// 返回: uint8 当前字节
func (b *BitStream) GetCurByte() uint8 {
	if b.IsInBounds() {
		return b.data[b.byteIdx]
	}
	return 0
}

// IncByteIdx 增加字节索引
func (b *BitStream) IncByteIdx() {
	b.AddOffset(1)
}

// GetCurByteArith 获取算术解码当前字节, 越界时返回0xFF
// 返回: uint8 当前字节
func (b *BitStream) GetCurByteArith() uint8 {
	if b.IsInBounds() {
		return b.data[b.byteIdx]
	}
	return 0xFF
}

// GetNextByteArith 获取算术解码下一字节, 越界时返回0xFF
// 返回: uint8 下一字节
func (b *BitStream) GetNextByteArith() uint8 {
	if uint64(b.byteIdx)+1 < uint64(len(b.data)) {
		return b.data[b.byteIdx+1]
	}
	return 0xFF
}

// GetOffset 获取当前字节偏移量
// 返回: uint32 偏移量
func (b *BitStream) GetOffset() uint32 {
	return b.byteIdx
}

// SetOffset 设置偏移量, 超出末尾时停在末尾
// 入参: offset 偏移量
func (b *BitStream) SetOffset(offset uint32) {
	size := uint32(len(b.data))
	if offset > size {
		b.byteIdx = size
	} else {
		b.byteIdx = offset
	}
	b.bitIdx = 0
}

// AddOffset 增加偏移量
// 入参: delta 增量
func (b *BitStream) AddOffset(delta uint32) {
	newOffset := uint64(b.byteIdx) + uint64(delta)
	if newOffset <= uint64(len(b.data)) {
		b.SetOffset(uint32(newOffset))
	} else {
		b.SetOffset(uint32(len(b.data)))
	}
}

// GetBitPos 获取当前位位置
// 返回: uint32 位位置
func (b *BitStream) GetBitPos() uint32 {
	return (b.byteIdx << 3) + b.bitIdx
}

// GetByteLeft 获取剩余字节数
// 返回: uint32 剩余字节数
func (b *BitStream) GetByteLeft() uint32 {
	if b.byteIdx >= uint32(len(b.data)) {
		return 0
	}
	return uint32(len(b.data)) - b.byteIdx
}

// GetLength 获取总字节数
// 返回: uint32 总字节数
func (b *BitStream) GetLength() uint32 {
	return uint32(len(b.data))
}

// GetPointer 获取从当前位置开始的数据
// 返回: []byte 数据切片
func (b *BitStream) GetPointer() []byte {
	if b.byteIdx >= uint32(len(b.data)) {
		return nil
	}
	return b.data[b.byteIdx:]
}

// SubStream 截取从当前位置开始的length字节作为独立位流, 并跳过这些字节
// 入参: length 字节数
// 返回: *BitStream 子位流, error 错误信息
func (b *BitStream) SubStream(length uint32) (*BitStream, error) {
	p, err := b.ReadBytes(length)
	if err != nil {
		return nil, err
	}
	return NewBitStream(p), nil
}

// IsInBounds 检查是否在边界内
// 返回: bool 是否在边界内
func (b *BitStream) IsInBounds() bool {
	return b.byteIdx < uint32(len(b.data))
}

func (b *BitStream) advanceBit() {
	if b.bitIdx == 7 {
		b.byteIdx++
		b.bitIdx = 0
	} else {
		b.bitIdx++
	}
}

func (b *BitStream) lengthInBits() uint64 {
	return uint64(len(b.data)) * 8
}
