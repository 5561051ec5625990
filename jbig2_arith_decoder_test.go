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
	"encoding/hex"
	"fmt"
	"testing"
)

// T.88 H.2 的编码测试序列
func TestArithDecoderReferenceVector(t *testing.T) {
	data, _ := hex.DecodeString("84C73BFCE1A1430402200000410DBB86F4317FFF88FF37471ADB6ADFFFAC")
	want, _ := hex.DecodeString("00020051000000C00352872AAAAAAAAA82C02000FCD79EF6BF7FED904F46A3BF")
	ad := NewArithDecoder(NewBitStream(data))
	var cx ArithCtx
	got := make([]byte, len(want))
	for i := range got {
		for j := 0; j < 8; j++ {
			got[i] = (got[i] << 1) | byte(ad.Decode(&cx))
		}
	}
	if hex.EncodeToString(got) != hex.EncodeToString(want) {
		t.Fatalf("decoded bits got %X, want %X", got, want)
	}
}

func TestArithDecoderRoundTrip(t *testing.T) {
	const contexts = 5
	bits := make([]int, 4000)
	seed := uint32(7)
	for i := range bits {
		seed = seed*1103515245 + 12345
		// 不同上下文使用不同的概率分布
		switch i % contexts {
		case 0:
			bits[i] = int(seed>>16) & 1
		case 1:
			if (seed>>16)%20 == 0 {
				bits[i] = 1
			}
		default:
			if (seed>>16)%9 != 0 {
				bits[i] = 1
			}
		}
	}
	e := newMQEncoder()
	enc := newArithCtxs(contexts)
	for i, b := range bits {
		e.encode(&enc[i%contexts], b)
	}
	ad := NewArithDecoder(NewBitStream(e.flush()))
	dec := newArithCtxs(contexts)
	for i, want := range bits {
		if got := ad.Decode(&dec[i%contexts]); got != want {
			t.Fatalf("bit %d got %d, want %d", i, got, want)
		}
	}
}

func TestArithDecoderPastEnd(t *testing.T) {
	ad := NewArithDecoder(NewBitStream(nil))
	var cx ArithCtx
	for i := 0; i < 64; i++ {
		ad.Decode(&cx)
	}
	if got := ad.Offset(); got != 0 {
		t.Fatalf("offset on empty stream got %d, want 0", got)
	}
}

func TestArithIntDecoder(t *testing.T) {
	values := []int32{0, 1, 3, 4, 19, 20, 83, 84, 339, 340, 4435, 4436, -1, -4, -340, -4436, 2147483647, -2147483647, 1000000}
	e := newMQEncoder()
	ie := newIntEncoder()
	for i, v := range values {
		ie.encode(e, v)
		if i == 5 {
			ie.encodeOOB(e)
		}
	}
	ie.encodeOOB(e)
	ad := NewArithDecoder(NewBitStream(e.flush()))
	d := NewArithIntDecoder()
	for i, want := range values {
		got, ok := d.Decode(ad)
		if !ok || got != want {
			t.Fatalf("value %d got %d, %v, want %d", i, got, ok, want)
		}
		if i == 5 {
			if v, ok := d.Decode(ad); ok {
				t.Fatalf("expected OOB after value %d, got %d", i, v)
			}
		}
	}
	if v, ok := d.Decode(ad); ok {
		t.Fatalf("expected trailing OOB, got %d", v)
	}
}

func TestArithIaidDecoder(t *testing.T) {
	for _, codeLen := range []uint8{0, 1, 3, 9} {
		t.Run(fmt.Sprintf("len%d", codeLen), func(t *testing.T) {
			var ids []uint32
			for i := uint32(0); i < 40; i++ {
				ids = append(ids, (i*7+3)%(uint32(1)<<codeLen))
			}
			e := newMQEncoder()
			ie := newIaidEncoder(codeLen)
			for _, id := range ids {
				ie.encode(e, id)
			}
			ad := NewArithDecoder(NewBitStream(e.flush()))
			d := NewArithIaidDecoder(codeLen)
			for i, want := range ids {
				if got := d.Decode(ad); got != want {
					t.Fatalf("id %d got %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestSymbolCodeLen(t *testing.T) {
	tests := []struct {
		n    uint32
		want uint8
	}{
		{0, 0}, {1, 0}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {256, 8}, {257, 9}, {65536, 16},
	}
	for _, tt := range tests {
		if got := symbolCodeLen(tt.n); got != tt.want {
			t.Errorf("symbolCodeLen(%d) got %d, want %d", tt.n, got, tt.want)
		}
	}
}
