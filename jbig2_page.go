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

// PageInfo 页面信息段(7.4.8)
type PageInfo struct {
	Width         uint32
	Height        uint32
	XRes          uint32
	YRes          uint32
	Flags         uint8
	Lossless      bool
	MayRefine     bool
	DefaultPixel  bool
	DefaultOp     ComposeOp
	AuxBuffers    bool
	OpOverride    bool
	Striped       bool
	MaxStripeSize uint16
}

// HeightUnknown 页面高度是否在页面信息段中未知
// 返回: bool 是否未知
func (p *PageInfo) HeightUnknown() bool {
	return p.Height == unknownLength
}

// parsePageInfo 解析页面信息段数据
// 入参: stream 段数据位流
// 返回: *PageInfo 页面信息, error 错误信息
func parsePageInfo(stream *BitStream) (*PageInfo, error) {
	pi := &PageInfo{}
	var err error
	if pi.Width, err = stream.ReadInteger(); err != nil {
		return nil, err
	}
	if pi.Height, err = stream.ReadInteger(); err != nil {
		return nil, err
	}
	if pi.XRes, err = stream.ReadInteger(); err != nil {
		return nil, err
	}
	if pi.YRes, err = stream.ReadInteger(); err != nil {
		return nil, err
	}
	if pi.Flags, err = stream.Read1Byte(); err != nil {
		return nil, err
	}
	striping, err := stream.ReadShortInteger()
	if err != nil {
		return nil, err
	}
	pi.Lossless = pi.Flags&0x01 != 0
	pi.MayRefine = pi.Flags&0x02 != 0
	pi.DefaultPixel = pi.Flags&0x04 != 0
	pi.DefaultOp = ComposeOp((pi.Flags >> 3) & 0x03)
	pi.AuxBuffers = pi.Flags&0x20 != 0
	pi.OpOverride = pi.Flags&0x40 != 0
	pi.Striped = striping&0x8000 != 0
	pi.MaxStripeSize = striping & 0x7FFF
	if pi.HeightUnknown() && !pi.Striped {
		return nil, wrapf(ErrMalformedRegion, "page of unknown height is not striped")
	}
	return pi, nil
}

// Page 解码中或已完成的页面
type Page struct {
	Number    uint32
	Info      *PageInfo
	Bitmap    *Image
	maxPixels int64
	stripeEnd int64
}

// newPage 按页面信息创建页面位图并填充默认像素
// 入参: number 页面编号, info 页面信息, maxPixels 像素上限
// 返回: *Page 页面, error 错误信息
func newPage(number uint32, info *PageInfo, maxPixels int64) (*Page, error) {
	height := info.Height
	if info.HeightUnknown() {
		height = 0
	}
	bitmap, err := newRegionBitmap(info.Width, height, maxPixels)
	if err != nil {
		return nil, err
	}
	bitmap.Fill(info.DefaultPixel)
	return &Page{Number: number, Info: info, Bitmap: bitmap, maxPixels: maxPixels, stripeEnd: -1}, nil
}

// Width 页面宽度
func (p *Page) Width() int {
	return int(p.Bitmap.Width())
}

// Height 页面高度
func (p *Page) Height() int {
	return int(p.Bitmap.Height())
}

// grow 未知高度的页面按需增加高度
func (p *Page) grow(height uint64) error {
	if !p.Info.HeightUnknown() || height <= uint64(p.Bitmap.Height()) {
		return nil
	}
	if height > 0x7FFFFFFF {
		return wrapf(ErrMalformedRegion, "page height %d out of range", height)
	}
	if err := checkBitmapSize(p.Info.Width, uint32(height), p.maxPixels); err != nil {
		return err
	}
	if !p.Bitmap.Expand(int32(height), p.Info.DefaultPixel) {
		return wrapf(ErrMalformedRegion, "page height %d out of range", height)
	}
	return nil
}

// composeOp 区域合成到页面使用的组合操作符, 取区域段信息中的外部组合操作符
func (p *Page) composeOp(ri RegionInfo) ComposeOp {
	return ri.ComposeOp()
}

// compose 将区域位图按区域信息合成到页面
// 入参: img 区域位图, ri 区域信息
// 返回: error 错误信息
func (p *Page) compose(img *Image, ri RegionInfo) error {
	if err := p.grow(uint64(ri.Y) + uint64(img.Height())); err != nil {
		return err
	}
	if ri.X > 0x7FFFFFFF || ri.Y > 0x7FFFFFFF {
		return nil
	}
	img.ComposeTo(p.Bitmap, int32(ri.X), int32(ri.Y), p.composeOp(ri))
	return nil
}

// endStripe 处理条带结束段, y为条带最后一行
// 入参: y 行坐标
// 返回: error 错误信息
func (p *Page) endStripe(y uint32) error {
	if int64(y) < p.stripeEnd {
		return wrapf(ErrMalformedRegion, "end of stripe row %d before previous stripe end %d", y, p.stripeEnd)
	}
	if p.Info.MaxStripeSize > 0 && int64(y)-p.stripeEnd > int64(p.Info.MaxStripeSize) {
		tracer().Debugf("page %d: stripe ending at row %d exceeds maximum stripe size %d", p.Number, y, p.Info.MaxStripeSize)
	}
	p.stripeEnd = int64(y)
	return p.grow(uint64(y) + 1)
}

// subImage 截取页面区域作为细化参考位图, 页面外像素为0
// 入参: ri 区域信息
// 返回: *Image 位图, error 错误信息
func (p *Page) subImage(ri RegionInfo) (*Image, error) {
	sub, err := newRegionBitmap(ri.Width, ri.Height, p.maxPixels)
	if err != nil {
		return nil, err
	}
	if ri.X > 0x7FFFFFFF || ri.Y > 0x7FFFFFFF {
		return sub, nil
	}
	x0, y0 := int32(ri.X), int32(ri.Y)
	for y := int32(0); y < sub.Height(); y++ {
		for x := int32(0); x < sub.Width(); x++ {
			sub.SetPixel(x, y, p.Bitmap.GetPixel(x0+x, y0+y))
		}
	}
	return sub, nil
}
