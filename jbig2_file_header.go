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

import "bytes"

// fileMagic 文件头标识
var fileMagic = []byte{0x97, 0x4A, 0x42, 0x32, 0x0D, 0x0A, 0x1A, 0x0A}

// FileOrganization 文件组织方式
type FileOrganization uint8

const (
	// OrganizationRandomAccess 随机访问: 全部段头在前, 段数据在后
	OrganizationRandomAccess FileOrganization = 0
	// OrganizationSequential 顺序: 段头与段数据交替
	OrganizationSequential FileOrganization = 1
)

func (o FileOrganization) String() string {
	if o == OrganizationSequential {
		return "sequential"
	}
	return "random-access"
}

// FileHeader 独立文件头(D.4)
type FileHeader struct {
	Organization   FileOrganization
	PageCountKnown bool
	PageCount      uint32
	Length         uint32
}

// Sequential 是否为顺序组织
// 返回: bool 是否顺序组织
func (h *FileHeader) Sequential() bool {
	return h.Organization == OrganizationSequential
}

// ParseFileHeader 解析独立文件头
// 入参: data 文件数据
// 返回: *FileHeader 文件头, error 错误信息
func ParseFileHeader(data []byte) (*FileHeader, error) {
	if len(data) < len(fileMagic) {
		if bytes.HasPrefix(fileMagic, data) {
			return nil, wrapf(ErrTruncatedStream, "file header needs %d bytes, have %d", len(fileMagic)+1, len(data))
		}
		return nil, wrapf(ErrInvalidHeader, "bad magic")
	}
	if !bytes.Equal(data[:len(fileMagic)], fileMagic) {
		return nil, wrapf(ErrInvalidHeader, "bad magic % x", data[:len(fileMagic)])
	}
	stream := NewBitStream(data)
	stream.SetOffset(uint32(len(fileMagic)))
	flags, err := stream.Read1Byte()
	if err != nil {
		return nil, err
	}
	if flags&0xFC != 0 {
		return nil, wrapf(ErrInvalidHeader, "reserved flag bits 0x%02x set", flags&0xFC)
	}
	h := &FileHeader{Organization: OrganizationRandomAccess}
	if flags&0x01 != 0 {
		h.Organization = OrganizationSequential
	}
	if flags&0x02 == 0 {
		h.PageCountKnown = true
		if h.PageCount, err = stream.ReadInteger(); err != nil {
			return nil, err
		}
	}
	h.Length = stream.GetOffset()
	return h, nil
}
