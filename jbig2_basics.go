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

const (
	// maxSymbolDimension 符号高度与宽度上限
	maxSymbolDimension = 65535
	// maxNewSymbols 单个符号字典的新符号上限
	maxNewSymbols = 65535
	// maxReferredSegments 单个段引用数量上限
	maxReferredSegments = 1 << 24
	// defaultMaxPixels 默认单幅位图像素上限
	defaultMaxPixels = int64(1) << 30
	// unknownLength 未知数据长度
	unknownLength = 0xFFFFFFFF
)

// ComposeOp 组合操作符
type ComposeOp uint8

const (
	// ComposeOr 或操作
	ComposeOr ComposeOp = 0
	// ComposeAnd 与操作
	ComposeAnd ComposeOp = 1
	// ComposeXor 异或操作
	ComposeXor ComposeOp = 2
	// ComposeXnor 同或操作
	ComposeXnor ComposeOp = 3
	// ComposeReplace 替换操作
	ComposeReplace ComposeOp = 4
)

func (op ComposeOp) String() string {
	switch op {
	case ComposeOr:
		return "OR"
	case ComposeAnd:
		return "AND"
	case ComposeXor:
		return "XOR"
	case ComposeXnor:
		return "XNOR"
	case ComposeReplace:
		return "REPLACE"
	}
	return fmt.Sprintf("ComposeOp(%d)", uint8(op))
}

// apply 对单个像素执行组合
func (op ComposeOp) apply(dst, src int) int {
	switch op {
	case ComposeOr:
		return dst | src
	case ComposeAnd:
		return dst & src
	case ComposeXor:
		return dst ^ src
	case ComposeXnor:
		return 1 ^ dst ^ src
	case ComposeReplace:
		return src
	}
	return dst
}

// RegionInfo 区域段信息字段(7.4.1)
type RegionInfo struct {
	Width  uint32
	Height uint32
	X      uint32
	Y      uint32
	Flags  uint8
}

// ComposeOp 获取外部组合操作符
// 返回: ComposeOp 组合操作符
func (r RegionInfo) ComposeOp() ComposeOp {
	return ComposeOp(r.Flags & 0x07)
}

// parseRegionInfo 解析17字节区域段信息
// 入参: stream 位流
// 返回: RegionInfo 区域信息, error 错误信息
func parseRegionInfo(stream *BitStream) (RegionInfo, error) {
	var ri RegionInfo
	var err error
	if ri.Width, err = stream.ReadInteger(); err != nil {
		return ri, err
	}
	if ri.Height, err = stream.ReadInteger(); err != nil {
		return ri, err
	}
	if ri.X, err = stream.ReadInteger(); err != nil {
		return ri, err
	}
	if ri.Y, err = stream.ReadInteger(); err != nil {
		return ri, err
	}
	if ri.Flags, err = stream.Read1Byte(); err != nil {
		return ri, err
	}
	if ri.ComposeOp() > ComposeReplace {
		return ri, wrapf(ErrMalformedRegion, "combination operator %d", ri.Flags&0x07)
	}
	return ri, nil
}

// checkBitmapSize 校验位图尺寸是否在允许范围内
// 入参: w 宽度, h 高度, limit 像素上限
// 返回: error 错误信息
func checkBitmapSize(w, h uint32, limit int64) error {
	if w > 0x7FFFFFFF || h > 0x7FFFFFFF {
		return wrapf(ErrMalformedRegion, "bitmap %dx%d out of range", w, h)
	}
	if limit > 0 && int64(w)*int64(h) > limit {
		return wrapf(ErrMalformedRegion, "bitmap %dx%d exceeds %d pixels", w, h, limit)
	}
	return nil
}

// newRegionBitmap 在像素上限内创建位图
// 入参: w 宽度, h 高度, limit 像素上限, 0表示不限
// 返回: *Image 位图, error 错误信息
func newRegionBitmap(w, h uint32, limit int64) (*Image, error) {
	if err := checkBitmapSize(w, h, limit); err != nil {
		return nil, err
	}
	img := NewImage(int32(w), int32(h))
	if img == nil {
		return nil, wrapf(ErrMalformedRegion, "bitmap %dx%d out of range", w, h)
	}
	return img, nil
}
