package report

import (
	"github.com/ethereum/go-ethereum/common"

	"liquidityPool/internal/model"
)

// PoolInfo is what the report needs to know about a pool beyond its events.
type PoolInfo struct {
	AssetX    common.Address
	AssetY    common.Address
	DecimalsX uint8
	DecimalsY uint8
}

// PoolDirectory resolves pool addresses to their assets and decimals.
type PoolDirectory struct {
	pools map[common.Address]PoolInfo
}

// NewPoolDirectory indexes pools, looking up asset decimals with decimals.
// Amounts of assets it cannot resolve are reported in base units.
func NewPoolDirectory(pools []model.PoolState, decimals func(common.Address) (uint8, bool)) *PoolDirectory {
	d := &PoolDirectory{pools: make(map[common.Address]PoolInfo, len(pools))}
	for _, p := range pools {
		info := PoolInfo{AssetX: p.AssetX, AssetY: p.AssetY}
		if decimals != nil {
			info.DecimalsX, _ = decimals(p.AssetX)
			info.DecimalsY, _ = decimals(p.AssetY)
		}
		d.pools[p.Address] = info
	}
	return d
}

func (d *PoolDirectory) Get(pool common.Address) (PoolInfo, bool) {
	if d == nil {
		return PoolInfo{}, false
	}
	info, ok := d.pools[pool]
	return info, ok
}
