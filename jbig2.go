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

// Package jbig2dec 纯 Go 语言 JBIG2 (ITU-T T.88) 二值图像解码器
package jbig2dec

import (
	"bytes"
	"image"
	"image/color"
	"io"
)

// Options 解码选项
type Options struct {
	// Globals 全局段数据(PDF中的JBIG2Globals)
	Globals []byte
	// Embedded 数据为无文件头的嵌入式段流(顺序组织)
	Embedded bool
	// MaxPixels 单幅位图像素上限, 0取默认值1<<30, 负数表示不限
	MaxPixels int64
	// Cache 全局段缓存, 为nil时每次解码全局段
	Cache *GlobalsCache
}

func (o *Options) maxPixels() int64 {
	switch {
	case o == nil || o.MaxPixels == 0:
		return defaultMaxPixels
	case o.MaxPixels < 0:
		return 0
	}
	return o.MaxPixels
}

func (o *Options) embedded() bool {
	return o != nil && o.Embedded
}

// loadGlobals 解码或从缓存获取全局段
func (o *Options) loadGlobals() (*globalSegments, error) {
	if o == nil || len(o.Globals) == 0 {
		return nil, nil
	}
	if o.Cache != nil {
		return o.Cache.load(o.Globals, o)
	}
	return decodeGlobals(o.Globals, o)
}

// Result 完整解码结果
type Result struct {
	Sequential     bool
	Organization   FileOrganization
	PageCountKnown bool
	PageCount      uint32
	Pages          []*Page
	Comments       []Comment
}

// openDocument 按选项创建文档上下文
func openDocument(data []byte, opts *Options) (*Document, error) {
	globals, err := opts.loadGlobals()
	if err != nil {
		return nil, err
	}
	return newDocument(data, globals, opts.embedded(), opts.maxPixels())
}

// DecodeBytes 解码全部页面
// 入参: data JBIG2数据, opts 解码选项, 可为nil
// 返回: *Result 解码结果, error 错误信息
func DecodeBytes(data []byte, opts *Options) (*Result, error) {
	doc, err := openDocument(data, opts)
	if err != nil {
		return nil, err
	}
	res := &Result{Sequential: true, Organization: OrganizationSequential}
	if doc.header != nil {
		res.Sequential = doc.header.Sequential()
		res.Organization = doc.header.Organization
		res.PageCountKnown = doc.header.PageCountKnown
		res.PageCount = doc.header.PageCount
	}
	for {
		page, err := doc.nextPage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		res.Pages = append(res.Pages, page)
	}
	res.Comments = doc.comments
	return res, nil
}

// Decoder JBIG2解码器, 逐页解码
type Decoder struct {
	doc       *Document
	pageIndex uint32
}

// NewDecoder 创建解码器, 数据须带文件头
// 入参: r 读取器
// 返回: *Decoder 解码器, error 错误信息
func NewDecoder(r io.Reader) (*Decoder, error) {
	return NewDecoderWithOptions(r, nil)
}

// NewDecoderWithGlobals 创建带全局段的解码器, 数据无文件头时按嵌入式段流解码
// 入参: r 读取器, globals 全局段数据
// 返回: *Decoder 解码器, error 错误信息
func NewDecoderWithGlobals(r io.Reader, globals []byte) (*Decoder, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	opts := &Options{Globals: globals, Embedded: !bytes.HasPrefix(data, fileMagic)}
	return newDecoder(data, opts)
}

// NewDecoderWithOptions 按选项创建解码器
// 入参: r 读取器, opts 解码选项, 可为nil
// 返回: *Decoder 解码器, error 错误信息
func NewDecoderWithOptions(r io.Reader, opts *Options) (*Decoder, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return newDecoder(data, opts)
}

func newDecoder(data []byte, opts *Options) (*Decoder, error) {
	doc, err := openDocument(data, opts)
	if err != nil {
		return nil, err
	}
	return &Decoder{doc: doc}, nil
}

// NextPage 解码下一页
// 返回: *Page 页面, error 错误信息, 没有更多页面时为io.EOF
func (d *Decoder) NextPage() (*Page, error) {
	page, err := d.doc.nextPage()
	if err != nil {
		return nil, err
	}
	d.pageIndex++
	return page, nil
}

// Decode 解码下一页
// 返回: image.Image 图像, error 错误信息
func (d *Decoder) Decode() (image.Image, error) {
	page, err := d.NextPage()
	if err != nil {
		return nil, err
	}
	return page.Bitmap.ToGoImage(), nil
}

// DecodeAll 解码所有剩余页面
// 返回: []image.Image 图像列表, error 错误信息
func (d *Decoder) DecodeAll() ([]image.Image, error) {
	var images []image.Image
	for {
		img, err := d.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return images, err
		}
		images = append(images, img)
	}
	return images, nil
}

// PagesDecoded 已解码的页面数量
func (d *Decoder) PagesDecoded() uint32 {
	return d.pageIndex
}

// Comments 目前为止读到的注释
func (d *Decoder) Comments() []Comment {
	return d.doc.comments
}

// Decode 解码JBIG2数据包含的第一页
// 入参: r 读取器
// 返回: image.Image 图像, error 错误信息
func Decode(r io.Reader) (image.Image, error) {
	dec, err := NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return dec.Decode()
}

// DecodeConfig 获取JBIG2图像配置, 页面高度未知时解码第一页
// 入参: r 读取器
// 返回: image.Config 图像配置, error 错误信息
func DecodeConfig(r io.Reader) (image.Config, error) {
	dec, err := NewDecoder(r)
	if err != nil {
		return image.Config{}, err
	}
	info, err := dec.doc.firstPageInfo()
	if err != nil {
		return image.Config{}, err
	}
	cfg := image.Config{ColorModel: color.GrayModel, Width: int(info.Width), Height: int(info.Height)}
	if info.HeightUnknown() {
		page, err := dec.NextPage()
		if err != nil {
			return image.Config{}, err
		}
		cfg.Height = page.Height()
	}
	return cfg, nil
}

func init() {
	image.RegisterFormat("jbig2", string(fileMagic), Decode, DecodeConfig)
}

// ToGoImage 转换为Go标准库灰度图像, 1为黑色
// 返回: image.Image 图像
func (i *Image) ToGoImage() image.Image {
	if i == nil {
		return nil
	}
	w, h := int(i.width), int(i.height)
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := i.data[y*int(i.stride):]
		pix := img.Pix[y*img.Stride : y*img.Stride+w]
		for x := range pix {
			if row[x>>3]&(0x80>>uint(x&7)) != 0 {
				pix[x] = 0
			} else {
				pix[x] = 0xFF
			}
		}
	}
	return img
}

// Image 将页面转换为Go标准库图像
// 返回: image.Image 图像
func (p *Page) Image() image.Image {
	return p.Bitmap.ToGoImage()
}
