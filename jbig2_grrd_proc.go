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

// refinementContextSize 细化区域模板的上下文数量
// 入参: template 模板编号
// 返回: int 上下文数量
func refinementContextSize(template uint8) int {
	if template == 0 {
		return 1 << 13
	}
	return 1 << 10
}

// GRRDProc 通用细化区域解码过程(6.3)
type GRRDProc struct {
	GRTEMPLATE    uint8
	TPGRON        bool
	GRW           uint32
	GRH           uint32
	GRREFERENCEDX int32
	GRREFERENCEDY int32
	GRREFERENCE   *Image
	GRAT          [4]int8
	MaxPixels     int64
}

// NewGRRDProc 创建细化区域解码过程
// 返回: *GRRDProc 解码过程对象
func NewGRRDProc() *GRRDProc {
	return &GRRDProc{}
}

// Decode 算术解码细化区域
// 入参: ad 算术解码器, contexts 上下文数组
// 返回: *Image 位图, error 错误信息
func (g *GRRDProc) Decode(ad *ArithDecoder, contexts []ArithCtx) (*Image, error) {
	if g.GRTEMPLATE > 1 {
		return nil, wrapf(ErrMalformedRegion, "refinement template %d", g.GRTEMPLATE)
	}
	if g.GRREFERENCE == nil {
		return nil, wrapf(ErrMalformedRegion, "refinement without reference bitmap")
	}
	if len(contexts) < refinementContextSize(g.GRTEMPLATE) {
		return nil, wrapf(ErrMalformedRegion, "refinement template %d needs %d contexts, have %d", g.GRTEMPLATE, refinementContextSize(g.GRTEMPLATE), len(contexts))
	}
	img, err := newRegionBitmap(g.GRW, g.GRH, g.MaxPixels)
	if err != nil {
		return nil, err
	}
	sltp := uint32(0x0010)
	if g.GRTEMPLATE == 1 {
		sltp = 0x0008
	}
	ltp := 0
	for y := int32(0); y < int32(g.GRH); y++ {
		if g.TPGRON {
			ltp ^= ad.Decode(&contexts[sltp])
		}
		for x := int32(0); x < int32(g.GRW); x++ {
			if ltp == 1 {
				if v, ok := g.typicalPixel(x, y); ok {
					img.SetPixel(x, y, v)
					continue
				}
			}
			img.SetPixel(x, y, ad.Decode(&contexts[g.context(img, x, y)]))
		}
	}
	return img, nil
}

// typicalPixel 参考位图3x3邻域全部相同时返回该像素值
func (g *GRRDProc) typicalPixel(x, y int32) (int, bool) {
	rx, ry := x-g.GRREFERENCEDX, y-g.GRREFERENCEDY
	v := g.GRREFERENCE.GetPixel(rx, ry)
	for dy := int32(-1); dy <= 1; dy++ {
		for dx := int32(-1); dx <= 1; dx++ {
			if g.GRREFERENCE.GetPixel(rx+dx, ry+dy) != v {
				return 0, false
			}
		}
	}
	return v, true
}

// context 计算像素(x, y)的细化上下文
func (g *GRRDProc) context(img *Image, x, y int32) uint32 {
	ref := g.GRREFERENCE
	rx, ry := x-g.GRREFERENCEDX, y-g.GRREFERENCEDY
	pix := func(i *Image, px, py int32, shift uint) uint32 {
		return uint32(i.GetPixel(px, py)) << shift
	}
	if g.GRTEMPLATE == 0 {
		return pix(ref, rx+1, ry+1, 0) | pix(ref, rx, ry+1, 1) | pix(ref, rx-1, ry+1, 2) |
			pix(ref, rx+1, ry, 3) | pix(ref, rx, ry, 4) | pix(ref, rx-1, ry, 5) |
			pix(ref, rx+1, ry-1, 6) | pix(ref, rx, ry-1, 7) |
			pix(ref, rx+int32(g.GRAT[2]), ry+int32(g.GRAT[3]), 8) |
			pix(img, x-1, y, 9) |
			pix(img, x+1, y-1, 10) | pix(img, x, y-1, 11) |
			pix(img, x+int32(g.GRAT[0]), y+int32(g.GRAT[1]), 12)
	}
	return pix(ref, rx+1, ry+1, 0) | pix(ref, rx, ry+1, 1) |
		pix(ref, rx+1, ry, 2) | pix(ref, rx, ry, 3) | pix(ref, rx-1, ry, 4) |
		pix(ref, rx, ry-1, 5) |
		pix(img, x-1, y, 6) |
		pix(img, x+1, y-1, 7) | pix(img, x, y-1, 8) | pix(img, x-1, y-1, 9)
}
