// Package adapter 提供消息适配核心框架
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KodaTao/SessionAdapter/pkg/observability"
)

// ErrAgentTimeout Agent 在时限内没有返回
var ErrAgentTimeout = errors.New("agent response timeout")

// Executor 有界的 Agent 调用执行器
// 所有请求共用同一个执行器：并发受槽位约束，单次调用受超时预算约束。
// runner 不响应取消时调用方也能按时拿回控制权，带着回退继续。
type Executor struct {
	timeout time.Duration
	slots   chan struct{}
}

// NewExecutor 创建执行器
func NewExecutor(timeout time.Duration, maxConcurrent int) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Executor{
		timeout: timeout,
		slots:   make(chan struct{}, maxConcurrent),
	}
}

// Timeout 返回单次调用的超时预算
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Invoke 在超时预算内调用 runner
// 超时后放弃等待立即返回，槽位由后台 goroutine 在 runner 真正退出时归还
func (e *Executor) Invoke(ctx context.Context, runner Runner, prompt string) (string, error) {
	select {
	case e.slots <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		output string
		err    error
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() { <-e.slots }()
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("agent panicked: %v", r)}
			}
		}()

		output, err := runner.Run(execCtx, prompt)
		done <- outcome{output: output, err: err}
	}()

	start := time.Now()
	select {
	case o := <-done:
		status := "success"
		if o.err != nil {
			status = "error"
		}
		observability.AgentCallLog(ctx, status, time.Since(start).Milliseconds())
		return o.output, o.err
	case <-execCtx.Done():
		observability.AgentCallLog(ctx, "timeout", time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w after %s", ErrAgentTimeout, e.timeout)
	}
}
