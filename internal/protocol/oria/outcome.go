package oria

import (
	"errors"
	"fmt"

	"github.com/taoyao-code/rf-gateway/internal/coremodel"
)

var (
	// ErrNoCandidate 输入中没有本设备的候选帧（噪声或其他设备），属于正常结果
	ErrNoCandidate = errors.New("no candidate")
	// ErrSanityFailure 帧形状正确但内容非法或不可信
	ErrSanityFailure = errors.New("sanity failure")
)

// Kind 解码结果分类
type Kind int

const (
	NoCandidate Kind = iota
	SanityFailure
	Accepted
)

func (k Kind) String() string {
	switch k {
	case NoCandidate:
		return "no_candidate"
	case SanityFailure:
		return "sanity_failure"
	case Accepted:
		return "accepted"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText JSON 中以名称输出
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Reason 拒绝原因
type Reason string

const (
	ReasonNone Reason = ""

	// 候选阶段
	ReasonNoRow    Reason = "no_row"
	ReasonWarmup   Reason = "warmup"
	ReasonSentinel Reason = "sentinel"

	// 合理性校验阶段
	ReasonTrailer          Reason = "trailer"
	ReasonChannel          Reason = "channel"
	ReasonBCD              Reason = "bcd"
	ReasonTemperatureRange Reason = "temperature_range"
	ReasonTemperatureDelta Reason = "temperature_delta"
	ReasonTableFull        Reason = "table_full"
)

// RejectError 携带分类与原因的拒绝错误，可用 errors.Is 匹配 ErrNoCandidate / ErrSanityFailure
type RejectError struct {
	Kind   Kind
	Reason Reason
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Reason, e.Detail)
}

func (e *RejectError) Unwrap() error {
	if e.Kind == NoCandidate {
		return ErrNoCandidate
	}
	return ErrSanityFailure
}

func noCandidate(reason Reason, format string, args ...any) *RejectError {
	return &RejectError{Kind: NoCandidate, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func sanity(reason Reason, format string, args ...any) *RejectError {
	return &RejectError{Kind: SanityFailure, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Outcome 一次解码调用的结果：Accepted 时 Reading 非空且恰好一条
type Outcome struct {
	Kind    Kind               `json:"kind"`
	Reason  Reason             `json:"reason,omitempty"`
	Detail  string             `json:"detail,omitempty"`
	Reading *coremodel.Reading `json:"reading,omitempty"`
}

// Accepted 是否接受
func (o Outcome) Accepted() bool { return o.Kind == Accepted }

// Err 未接受时返回 *RejectError，否则 nil
func (o Outcome) Err() error {
	if o.Kind == Accepted {
		return nil
	}
	return &RejectError{Kind: o.Kind, Reason: o.Reason, Detail: o.Detail}
}

func rejected(e *RejectError) Outcome {
	return Outcome{Kind: e.Kind, Reason: e.Reason, Detail: e.Detail}
}
