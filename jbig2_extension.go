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
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	// extensionComment 以Latin-1编码的注释扩展
	extensionComment uint32 = 0x20000000
	// extensionUnicodeComment 以UCS-2大端编码的注释扩展
	extensionUnicodeComment uint32 = 0x20000002
	// extensionNecessary 必须理解的扩展标志位
	extensionNecessary uint32 = 0x80000000
)

// Comment 注释扩展段中的一个键值对
type Comment struct {
	Segment uint32
	Key     string
	Value   string
}

// decodeExtension 解码扩展段(类型62, 7.4.14)
func decodeExtension(d *Document, seg *Segment, stream *BitStream) error {
	ext, err := stream.ReadInteger()
	if err != nil {
		return err
	}
	var comments []Comment
	switch ext {
	case extensionComment:
		comments, err = parseComments(seg.Number(), stream.GetPointer(), 1, charmap.ISO8859_1.NewDecoder())
	case extensionUnicodeComment:
		comments, err = parseComments(seg.Number(), stream.GetPointer(), 2, unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder())
	default:
		if ext&extensionNecessary != 0 {
			return wrapf(ErrUnsupportedSegmentType, "necessary extension 0x%08X", ext)
		}
		tracer().Debugf("segment %d: skipping extension 0x%08X", seg.Number(), ext)
		return nil
	}
	if err != nil {
		return err
	}
	seg.ResultType = ResultComments
	seg.Comments = comments
	d.comments = append(d.comments, comments...)
	return nil
}

// parseComments 解析以零结尾的名称/值字符串对, 空名称结束列表
// 入参: number 段编号, data 字符串数据, unit 字符宽度, dec 文本解码器
// 返回: []Comment 注释列表, error 错误信息
func parseComments(number uint32, data []byte, unit int, dec *encoding.Decoder) ([]Comment, error) {
	var comments []Comment
	for {
		key, rest, err := cutString(data, unit)
		if err != nil {
			return nil, err
		}
		if len(key) == 0 {
			return comments, nil
		}
		value, rest, err := cutString(rest, unit)
		if err != nil {
			return nil, err
		}
		data = rest
		k, err := dec.Bytes(key)
		if err != nil {
			return nil, wrapErr(ErrMalformedSegmentHeader, err, "comment name")
		}
		v, err := dec.Bytes(value)
		if err != nil {
			return nil, wrapErr(ErrMalformedSegmentHeader, err, "comment value")
		}
		comments = append(comments, Comment{Segment: number, Key: string(k), Value: string(v)})
	}
}

// cutString 截取一个以零字符结尾的字符串
// 入参: data 数据, unit 字符宽度
// 返回: []byte 不含结尾的字符串, []byte 剩余数据, error 错误信息
func cutString(data []byte, unit int) ([]byte, []byte, error) {
	for i := 0; i+unit <= len(data); i += unit {
		zero := true
		for _, c := range data[i : i+unit] {
			if c != 0 {
				zero = false
				break
			}
		}
		if zero {
			return data[:i], data[i+unit:], nil
		}
	}
	return nil, nil, wrapf(ErrTruncatedStream, "unterminated comment string")
}
