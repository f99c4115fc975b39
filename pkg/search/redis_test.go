package search

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestEncodeVectorLittleEndian(t *testing.T) {
	got := encodeVector([]float32{1.5, -2.25})
	if len(got) != 8 {
		t.Fatalf("length = %d, want 8", len(got))
	}
	first := math.Float32frombits(binary.LittleEndian.Uint32([]byte(got[:4])))
	if first != 1.5 {
		t.Fatalf("first component = %v", first)
	}
	second := math.Float32frombits(binary.LittleEndian.Uint32([]byte(got[4:])))
	if second != -2.25 {
		t.Fatalf("second component = %v", second)
	}
}

func TestParseKNNReplyRESP2(t *testing.T) {
	reply := []interface{}{
		int64(1),
		"schedflow:events:prev-1",
		[]interface{}{"dist", "0.12"},
	}
	key, dist, ok := parseKNNReply(reply)
	if !ok {
		t.Fatal("expected a hit")
	}
	if key != "schedflow:events:prev-1" {
		t.Fatalf("key = %s", key)
	}
	if dist != 0.12 {
		t.Fatalf("dist = %v", dist)
	}
}

func TestParseKNNReplyEmpty(t *testing.T) {
	if _, _, ok := parseKNNReply([]interface{}{int64(0)}); ok {
		t.Fatal("empty result should not produce a hit")
	}
}

func TestParseKNNReplyRESP3(t *testing.T) {
	reply := map[interface{}]interface{}{
		"total_results": int64(1),
		"results": []interface{}{
			map[interface{}]interface{}{
				"id": "schedflow:events:prev-2",
				"extra_attributes": map[interface{}]interface{}{
					"dist": "0.4",
				},
			},
		},
	}
	key, dist, ok := parseKNNReply(reply)
	if !ok || key != "schedflow:events:prev-2" || dist != 0.4 {
		t.Fatalf("got %s %v %v", key, dist, ok)
	}
}

func TestStripPrefix(t *testing.T) {
	idx := &Index{cfg: Config{Prefix: "schedflow:events:"}}
	if got := idx.stripPrefix("schedflow:events:e1"); got != "e1" {
		t.Fatalf("got %s", got)
	}
	if got := idx.stripPrefix("e1"); got != "e1" {
		t.Fatalf("unprefixed key should pass through, got %s", got)
	}
}

func TestEscapeTag(t *testing.T) {
	if got := escapeTag("user-1@example.com"); got != `user\-1\@example\.com` {
		t.Fatalf("got %s", got)
	}
}
