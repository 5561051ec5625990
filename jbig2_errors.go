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
	"errors"
	"fmt"
)

var (
	// ErrTruncatedStream 数据不足以完成读取
	ErrTruncatedStream = errors.New("jbig2: truncated stream")
	// ErrInvalidHeader 文件头标识不匹配或保留位非零
	ErrInvalidHeader = errors.New("jbig2: invalid file header")
	// ErrUnsupportedSegmentType 段类型未实现
	ErrUnsupportedSegmentType = errors.New("jbig2: unsupported segment type")
	// ErrMalformedSegmentHeader 段头字段不一致
	ErrMalformedSegmentHeader = errors.New("jbig2: malformed segment header")
	// ErrMalformedSymbolDictionary 符号字典内部计数不一致
	ErrMalformedSymbolDictionary = errors.New("jbig2: malformed symbol dictionary")
	// ErrMalformedTextRegion 文本区域内部计数不一致
	ErrMalformedTextRegion = errors.New("jbig2: malformed text region")
	// ErrMalformedRegion 通用或细化区域参数不一致
	ErrMalformedRegion = errors.New("jbig2: malformed region")
	// ErrDanglingReference 引用了无法解析的段
	ErrDanglingReference = errors.New("jbig2: dangling segment reference")
)

// SegmentError 段级错误, 携带段编号与字节偏移
type SegmentError struct {
	Number uint32
	Type   SegmentType
	Offset uint32
	Err    error
}

// Error 实现error接口
// 返回: string 错误描述
func (e *SegmentError) Error() string {
	return fmt.Sprintf("%v (segment %d, type %v, offset %d)", e.Err, e.Number, e.Type, e.Offset)
}

// Unwrap 返回底层错误
// 返回: error 底层错误
func (e *SegmentError) Unwrap() error {
	return e.Err
}

// wrapf 为哨兵错误附加上下文
// 入参: sentinel 哨兵错误, format 格式, args 参数
// 返回: error 错误信息
func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// wrapErr 将底层错误同时挂接到哨兵错误上, 两者均可通过errors.Is识别
func wrapErr(sentinel error, err error, what string) error {
	return fmt.Errorf("%w: %s: %w", sentinel, what, err)
}
