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

import (
	"bytes"
	"io"

	"golang.org/x/image/ccitt"
)

// decodeG4 将CCITT G4编码数据逐行解码到位图
// 入参: data 编码数据, img 目标位图
// 返回: error 错误信息
func decodeG4(data []byte, img *Image) error {
	width, height := int(img.Width()), int(img.Height())
	if width == 0 || height == 0 {
		return nil
	}
	reader := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, ccitt.Group4, width, height, &ccitt.Options{Invert: true})
	stride := int(img.Stride())
	buf := img.Data()
	for y := 0; y < height; y++ {
		if _, err := io.ReadFull(reader, buf[y*stride:(y+1)*stride]); err != nil {
			return wrapErr(ErrMalformedRegion, err, "mmr row")
		}
	}
	img.clearPadding()
	return nil
}
