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

// Image 1位打包位图, 行优先, 高位在前, 1表示黑色
type Image struct {
	width  int32
	height int32
	stride int32
	data   []byte
}

// NewImage 创建全白位图, 尺寸非法时返回nil
// 入参: width 宽度, height 高度
// 返回: *Image 位图对象
func NewImage(width, height int32) *Image {
	if width < 0 || height < 0 {
		return nil
	}
	stride := (int64(width) + 7) / 8
	if stride*int64(height) > 0x7FFFFFFF {
		return nil
	}
	return &Image{
		width:  width,
		height: height,
		stride: int32(stride),
		data:   make([]byte, stride*int64(height)),
	}
}

// Width 获取宽度
// 返回: int32 宽度
func (i *Image) Width() int32 {
	return i.width
}

// Height 获取高度
// 返回: int32 高度
func (i *Image) Height() int32 {
	return i.height
}

// Stride 获取行字节数
// 返回: int32 行字节数
func (i *Image) Stride() int32 {
	return i.stride
}

// Data 获取位图数据
// 返回: []byte 位图数据
func (i *Image) Data() []byte {
	return i.data
}

// GetPixel 获取像素, 越界返回0
// 入参: x 横坐标, y 纵坐标
// 返回: int 像素值
func (i *Image) GetPixel(x, y int32) int {
	if x < 0 || x >= i.width || y < 0 || y >= i.height {
		return 0
	}
	return int(i.data[y*i.stride+(x>>3)]>>(7-uint(x&7))) & 1
}

// SetPixel 设置像素, 越界忽略
// 入参: x 横坐标, y 纵坐标, v 像素值
func (i *Image) SetPixel(x, y int32, v int) {
	if x < 0 || x >= i.width || y < 0 || y >= i.height {
		return
	}
	mask := byte(0x80) >> uint(x&7)
	if v != 0 {
		i.data[y*i.stride+(x>>3)] |= mask
	} else {
		i.data[y*i.stride+(x>>3)] &^= mask
	}
}

// Fill 填充整幅位图
// 入参: v 是否填充为黑色
func (i *Image) Fill(v bool) {
	var val byte
	if v {
		val = 0xFF
	}
	for idx := range i.data {
		i.data[idx] = val
	}
}

// ComposeTo 将当前位图按组合操作符合成到目标位图, 超出目标的部分被裁剪
// 入参: dst 目标位图, x 横坐标, y 纵坐标, op 组合操作符
func (i *Image) ComposeTo(dst *Image, x, y int32, op ComposeOp) {
	if i == nil || dst == nil {
		return
	}
	x0, y0 := max(int32(0), -x), max(int32(0), -y)
	x1 := min(i.width, dst.width-x)
	y1 := min(i.height, dst.height-y)
	for h := y0; h < y1; h++ {
		for w := x0; w < x1; w++ {
			dst.SetPixel(x+w, y+h, op.apply(dst.GetPixel(x+w, y+h), i.GetPixel(w, h)))
		}
	}
}

// Expand 增加高度, 新行填充默认像素
// 入参: height 新高度, defaultPixel 默认像素
// 返回: bool 数据量超出范围时为false
func (i *Image) Expand(height int32, defaultPixel bool) bool {
	if height <= i.height {
		return true
	}
	size := int64(i.stride) * int64(height)
	if size > 0x7FFFFFFF {
		return false
	}
	data := make([]byte, size)
	copy(data, i.data)
	if defaultPixel {
		for j := len(i.data); j < len(data); j++ {
			data[j] = 0xFF
		}
	}
	i.data = data
	i.height = height
	return true
}

// Duplicate 复制位图
// 返回: *Image 副本
func (i *Image) Duplicate() *Image {
	if i == nil {
		return nil
	}
	dup := NewImage(i.width, i.height)
	copy(dup.data, i.data)
	return dup
}

// CopyLine 复制行, 源行越界时目标行清零
// 入参: h 目标行, srcH 源行
func (i *Image) CopyLine(h, srcH int32) {
	if h < 0 || h >= i.height {
		return
	}
	row := i.data[h*i.stride : (h+1)*i.stride]
	if srcH < 0 || srcH >= i.height {
		clear(row)
		return
	}
	copy(row, i.data[srcH*i.stride:(srcH+1)*i.stride])
}

// clearPadding 清除每行末尾的填充位
func (i *Image) clearPadding() {
	if i.width&7 == 0 {
		return
	}
	mask := byte(0xFF) << uint(8-(i.width&7))
	for y := int32(0); y < i.height; y++ {
		i.data[y*i.stride+i.stride-1] &= mask
	}
}
