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
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// globalSegments 已解码的全局段, 解码完成后只读, 可被多个文档共享
type globalSegments struct {
	data      []byte
	maxPixels int64
	segments  map[uint32]*Segment
}

// lookup 按编号查找全局段
func (g *globalSegments) lookup(number uint32) *Segment {
	if g == nil {
		return nil
	}
	return g.segments[number]
}

// GlobalsCache 全局段缓存, 以全局数据的哈希为键
// 可在多个goroutine间共享, 不同页面流引用同一份JBIG2Globals时只解码一次
type GlobalsCache struct {
	cache *lru.Cache[uint64, *globalSegments]
}

// NewGlobalsCache 创建全局段缓存
// 入参: size 最多保存的全局数据份数
// 返回: *GlobalsCache 缓存, error 错误信息
func NewGlobalsCache(size int) (*GlobalsCache, error) {
	cache, err := lru.New[uint64, *globalSegments](size)
	if err != nil {
		return nil, err
	}
	return &GlobalsCache{cache: cache}, nil
}

// Len 当前缓存的全局数据份数
func (c *GlobalsCache) Len() int {
	return c.cache.Len()
}

// load 获取全局段, 未命中时解码并加入缓存
// 入参: globals 全局数据, opts 解码选项
// 返回: *globalSegments 全局段, error 错误信息
func (c *GlobalsCache) load(globals []byte, opts *Options) (*globalSegments, error) {
	maxPixels := opts.maxPixels()
	key := globalsKey(globals, maxPixels)
	if g, ok := c.cache.Get(key); ok && g.maxPixels == maxPixels && bytes.Equal(g.data, globals) {
		tracer().Debugf("globals cache hit %016x", key)
		return g, nil
	}
	g, err := decodeGlobals(globals, opts)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, g)
	return g, nil
}

// globalsKey 全局数据与像素上限共同决定的缓存键
func globalsKey(globals []byte, maxPixels int64) uint64 {
	d := xxhash.New()
	d.Write(globals)
	d.Write(binary.BigEndian.AppendUint64(nil, uint64(maxPixels)))
	return d.Sum64()
}

// decodeGlobals 解码全局段数据流(嵌入式, 顺序组织)
// 入参: globals 全局数据, opts 解码选项
// 返回: *globalSegments 全局段, error 错误信息
func decodeGlobals(globals []byte, opts *Options) (*globalSegments, error) {
	data := bytes.Clone(globals)
	doc, err := newDocument(data, nil, true, opts.maxPixels())
	if err != nil {
		return nil, err
	}
	if err := doc.decodeGlobals(); err != nil {
		return nil, err
	}
	return &globalSegments{data: data, maxPixels: opts.maxPixels(), segments: doc.segments}, nil
}
