package links

import (
	"fmt"
	"testing"
)

func makeLinks(n int) []string {
	links := make([]string, n)
	for i := range links {
		links[i] = fmt.Sprintf("https://example.com/hotel/tr/h%d.html", i)
	}
	return links
}

func TestPartition_InvalidParams(t *testing.T) {
	tests := []struct {
		name        string
		totalShards int
		shardIndex  int
	}{
		{"分片总数为0", 0, 0},
		{"分片总数为负", -1, 0},
		{"分片索引为负", 2, -1},
		{"分片索引等于总数", 2, 2},
		{"分片索引超过总数", 2, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Partition(makeLinks(10), tt.totalShards, tt.shardIndex); err == nil {
				t.Error("非法分片参数应返回错误")
			}
		})
	}
}

func TestPartition_DisjointUnion(t *testing.T) {
	// 10个链接分2片: 每片5个,互不重叠,并集为全部
	all := makeLinks(10)

	seen := make(map[string]int)
	for shardIndex := 0; shardIndex < 2; shardIndex++ {
		shard, err := Partition(all, 2, shardIndex)
		if err != nil {
			t.Fatalf("Partition() error = %v", err)
		}
		if shard.Size() != 5 {
			t.Errorf("分片 %d 大小 = %v, want 5", shardIndex, shard.Size())
		}
		for _, link := range shard.Links {
			seen[link]++
		}
	}

	if len(seen) != 10 {
		t.Errorf("并集大小 = %v, want 10", len(seen))
	}
	for link, count := range seen {
		if count != 1 {
			t.Errorf("链接 %s 被分配了 %d 次", link, count)
		}
	}
}

func TestPartition_UnevenSplit(t *testing.T) {
	// 10个链接分3片: ceil(10/3)=4, 分片大小为 4,4,2
	all := makeLinks(10)
	wantSizes := []int{4, 4, 2}

	for shardIndex, want := range wantSizes {
		shard, err := Partition(all, 3, shardIndex)
		if err != nil {
			t.Fatalf("Partition() error = %v", err)
		}
		if shard.Size() != want {
			t.Errorf("分片 %d 大小 = %v, want %v", shardIndex, shard.Size(), want)
		}
	}
}

func TestPartition_EmptyTailShard(t *testing.T) {
	// 2个链接分3片: ceil(2/3)=1, 第三片为空
	shard, err := Partition(makeLinks(2), 3, 2)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if shard.Size() != 0 {
		t.Errorf("末尾分片应为空, got %v", shard.Size())
	}
}

func TestShard_GlobalIndexStability(t *testing.T) {
	// 同一链接的全局序号与处理它的分片无关
	all := makeLinks(10)

	indexByLink := make(map[string]int)
	single, err := Partition(all, 1, 0)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	for i, link := range single.Links {
		indexByLink[link] = single.GlobalIndex(i)
	}

	for shardIndex := 0; shardIndex < 2; shardIndex++ {
		shard, err := Partition(all, 2, shardIndex)
		if err != nil {
			t.Fatalf("Partition() error = %v", err)
		}
		for i, link := range shard.Links {
			if got := shard.GlobalIndex(i); got != indexByLink[link] {
				t.Errorf("链接 %s 全局序号不稳定: 单分片=%d, 双分片=%d", link, indexByLink[link], got)
			}
		}
	}
}

func TestShard_GlobalIndexOneBased(t *testing.T) {
	shard, err := Partition(makeLinks(4), 2, 1)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if got := shard.GlobalIndex(0); got != 3 {
		t.Errorf("第二分片首链接全局序号 = %v, want 3", got)
	}
}
