package snowflake

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

const maxPartID = 31

var (
	mu   sync.RWMutex
	node *snowflake.Node

	ErrInvalidMachineID    = errors.New("invalid snowflake machine id")
	ErrInvalidDataCenterID = errors.New("invalid snowflake datacenter id")
	ErrNotInitialized      = errors.New("snowflake generator is not initialized")
)

// NodeID 10 位节点号: 高 5 位数据中心，低 5 位机器
func NodeID(machineID, dataCenterID int64) (int64, error) {
	if machineID < 0 || machineID > maxPartID {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMachineID, machineID)
	}
	if dataCenterID < 0 || dataCenterID > maxPartID {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDataCenterID, dataCenterID)
	}
	return dataCenterID<<5 | machineID, nil
}

// Init 重复调用会替换节点，server 与 worker 各自持有一个进程级节点
func Init(machineID, dataCenterID int64) error {
	id, err := NodeID(machineID, dataCenterID)
	if err != nil {
		return err
	}

	n, err := snowflake.NewNode(id)
	if err != nil {
		return fmt.Errorf("create snowflake node %d: %w", id, err)
	}

	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// NextID 考勤记录主键与事件消息 ID 共用同一个节点
func NextID() (int64, error) {
	mu.RLock()
	n := node
	mu.RUnlock()

	if n == nil {
		return 0, ErrNotInitialized
	}
	return n.Generate().Int64(), nil
}
