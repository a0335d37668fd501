package run

import (
	"time"

	"github.com/John-Robertt/coursedl/internal/config"
	"github.com/John-Robertt/coursedl/internal/domain"
)

// Observer 用于把“运行进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出。
// - Observer 的实现必须并发安全：事件可能来自多个 goroutine。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束/就绪时调用（index、exec）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在某个条目处理完成时调用；idx 为完成序（1 基）。
	OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration)
}
