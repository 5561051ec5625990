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

// genericTemplate 通用区域模板的行寄存器布局
type genericTemplate struct {
	// line1: 第y-2行(模板3为第y-1行)寄存器的初始列, 更新列偏移与掩码
	line1Row   int32
	line1Init  int32
	line1Next  int32
	line1Mask  uint32
	line1Shift uint
	// line2: 第y-1行寄存器, 模板3不使用
	line2Init  int32
	line2Next  int32
	line2Mask  uint32
	line2Shift uint
	// line3: 当前行已解码像素
	line3Mask uint32
	atShift   uint
	sltp      uint32
	ctxSize   int
}

var genericTemplates = [4]genericTemplate{
	{line1Row: 2, line1Init: 1, line1Next: 2, line1Mask: 0x07, line1Shift: 12, line2Init: 2, line2Next: 3, line2Mask: 0x1F, line2Shift: 5, line3Mask: 0x0F, atShift: 4, sltp: 0x9B25, ctxSize: 65536},
	{line1Row: 2, line1Init: 2, line1Next: 3, line1Mask: 0x0F, line1Shift: 9, line2Init: 2, line2Next: 3, line2Mask: 0x1F, line2Shift: 4, line3Mask: 0x07, atShift: 3, sltp: 0x0795, ctxSize: 8192},
	{line1Row: 2, line1Init: 1, line1Next: 2, line1Mask: 0x07, line1Shift: 7, line2Init: 1, line2Next: 2, line2Mask: 0x0F, line2Shift: 3, line3Mask: 0x03, atShift: 2, sltp: 0x00E5, ctxSize: 1024},
	{line1Row: 1, line1Init: 1, line1Next: 2, line1Mask: 0x1F, line1Shift: 5, line3Mask: 0x0F, atShift: 4, sltp: 0x0195, ctxSize: 1024},
}

// genericContextSize 获取通用区域模板的上下文数量
// 入参: template 模板编号
// 返回: int 上下文数量
func genericContextSize(template uint8) int {
	return genericTemplates[template&3].ctxSize
}

// GRDProc 通用区域解码过程(6.2)
type GRDProc struct {
	MMR        bool
	GBW        uint32
	GBH        uint32
	GBTEMPLATE uint8
	TPGDON     bool
	GBAT       [8]int8
	MaxPixels  int64
}

// NewGRDProc 创建通用区域解码过程
// 返回: *GRDProc 解码过程对象
func NewGRDProc() *GRDProc {
	return &GRDProc{}
}

// DecodeArith 算术解码通用区域
// 入参: ad 算术解码器, contexts 上下文数组, 长度至少为genericContextSize
// 返回: *Image 位图, error 错误信息
func (g *GRDProc) DecodeArith(ad *ArithDecoder, contexts []ArithCtx) (*Image, error) {
	if g.GBTEMPLATE > 3 {
		return nil, wrapf(ErrMalformedRegion, "generic template %d", g.GBTEMPLATE)
	}
	tpl := &genericTemplates[g.GBTEMPLATE]
	if len(contexts) < tpl.ctxSize {
		return nil, wrapf(ErrMalformedRegion, "generic template %d needs %d contexts, have %d", g.GBTEMPLATE, tpl.ctxSize, len(contexts))
	}
	img, err := newRegionBitmap(g.GBW, g.GBH, g.MaxPixels)
	if err != nil {
		return nil, err
	}
	width := int32(g.GBW)
	at := g.GBAT
	ltp := 0
	for y := int32(0); y < int32(g.GBH); y++ {
		if g.TPGDON {
			ltp ^= ad.Decode(&contexts[tpl.sltp])
			if ltp == 1 {
				img.CopyLine(y, y-1)
				continue
			}
		}
		r1 := y - tpl.line1Row
		line1 := uint32(img.GetPixel(tpl.line1Init, r1))
		for c := tpl.line1Init - 1; c >= 0; c-- {
			line1 |= uint32(img.GetPixel(c, r1)) << uint(tpl.line1Init-c)
		}
		var line2 uint32
		if tpl.line2Mask != 0 {
			line2 = uint32(img.GetPixel(tpl.line2Init, y-1))
			for c := tpl.line2Init - 1; c >= 0; c-- {
				line2 |= uint32(img.GetPixel(c, y-1)) << uint(tpl.line2Init-c)
			}
		}
		var line3 uint32
		for x := int32(0); x < width; x++ {
			cx := line3 | uint32(img.GetPixel(x+int32(at[0]), y+int32(at[1])))<<tpl.atShift
			cx |= line2<<tpl.line2Shift | line1<<tpl.line1Shift
			if g.GBTEMPLATE == 0 {
				cx |= uint32(img.GetPixel(x+int32(at[2]), y+int32(at[3]))) << 10
				cx |= uint32(img.GetPixel(x+int32(at[4]), y+int32(at[5]))) << 11
				cx |= uint32(img.GetPixel(x+int32(at[6]), y+int32(at[7]))) << 15
			}
			bit := ad.Decode(&contexts[cx])
			if bit != 0 {
				img.SetPixel(x, y, 1)
			}
			line1 = ((line1 << 1) | uint32(img.GetPixel(x+tpl.line1Next, r1))) & tpl.line1Mask
			if tpl.line2Mask != 0 {
				line2 = ((line2 << 1) | uint32(img.GetPixel(x+tpl.line2Next, y-1))) & tpl.line2Mask
			}
			line3 = ((line3 << 1) | uint32(bit)) & tpl.line3Mask
		}
	}
	return img, nil
}

// DecodeMMR 以CCITT G4(MMR)解码通用区域
// 入参: data 编码数据
// 返回: *Image 位图, error 错误信息
func (g *GRDProc) DecodeMMR(data []byte) (*Image, error) {
	img, err := newRegionBitmap(g.GBW, g.GBH, g.MaxPixels)
	if err != nil {
		return nil, err
	}
	if err := decodeG4(data, img); err != nil {
		return nil, err
	}
	return img, nil
}
