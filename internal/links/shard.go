package links

import (
	"fmt"

	"github.com/RecoveryAshes/roomcrawl/internal/utils"
)

// Shard 分配给单个实例的链接切片
type Shard struct {
	Start int      // 全局起始偏移(0起始,含)
	End   int      // 全局结束偏移(不含)
	Links []string // 本分片负责的链接,保持全局顺序
}

// Size 本分片的链接数
func (s *Shard) Size() int {
	return len(s.Links)
}

// GlobalIndex 本分片内第i个链接的全局序号(1起始)
// 无论由哪个分片处理,同一链接的序号始终一致
func (s *Shard) GlobalIndex(localIndex int) int {
	return s.Start + localIndex + 1
}

// Partition 按分片参数切分链接列表
// linksPerShard = ceil(total/totalShards),各分片为半开区间[start,end),
// 链接数不能整除时末尾分片可能更小甚至为空
func Partition(allLinks []string, totalShards, shardIndex int) (*Shard, error) {
	if totalShards <= 0 {
		return nil, fmt.Errorf("分片总数必须大于0 (当前: %d)", totalShards)
	}
	if shardIndex < 0 || shardIndex >= totalShards {
		return nil, fmt.Errorf("分片索引必须在0-%d之间 (当前: %d)", totalShards-1, shardIndex)
	}

	total := len(allLinks)
	linksPerShard := (total + totalShards - 1) / totalShards
	start := shardIndex * linksPerShard
	end := start + linksPerShard
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	shard := &Shard{
		Start: start,
		End:   end,
		Links: allLinks[start:end],
	}

	if shard.Size() == 0 {
		utils.Warnf("分片 %d/%d 没有分到任何链接 (总数: %d)", shardIndex, totalShards, total)
	} else {
		utils.Infof("📊 分片 %d/%d 负责链接 %d-%d (共 %d 个)",
			shardIndex, totalShards, shard.GlobalIndex(0), shard.GlobalIndex(shard.Size()-1), shard.Size())
	}
	return shard, nil
}
