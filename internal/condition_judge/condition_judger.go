//go:generate go tool mockgen -source=$GOFILE -destination=mock/mock_$GOFILE -package=mock

package conditionjudge

import (
	"errors"
	"fmt"
)

// ErrNoHooks is returned by HookEvent for a key without a hook.
var ErrNoHooks = errors.New("no hooks registered for the key")

type IConditionJudger[K comparable, S any, T any] interface {
	IsHookExist(key K) bool
	HookEvent(key K, value S) (bool, error)
	KeyEvent(key K) error
}

// ConditionJudger runs a hook directly once all the keys it requires have
// been seen, and pre-processes and defers its calls until then.
type ConditionJudger[K comparable, S any, T any] struct {
	preProcessFunc PreProcessFunc[S, T]
	// readyHooks are hooks whose requirements are all satisfied.
	readyHooks map[K]func(S) error
	// waiting maps a required key to the hooks still waiting for it.
	waiting map[K][]*pendingHook[K, S, T]
	pending map[K]*pendingHook[K, S, T]
}

type PreProcessFunc[S any, T any] func(S) (T, error)

type pendingHook[K comparable, S any, T any] struct {
	key              K
	normalPathFunc   func(S) error
	abnormalPathFunc func(T) error
	deferredParams   []T
	missing          int
}

type Hook[K comparable, S any, T any] interface {
	NormalPath(S) error
	AbnormalPath(T) error
	Requirements() []K
}

func NewConditionJudger[K comparable, S any, T any](hookMap map[K]Hook[K, S, T], preProcessFunc PreProcessFunc[S, T]) *ConditionJudger[K, S, T] {
	cj := &ConditionJudger[K, S, T]{
		preProcessFunc: preProcessFunc,
		readyHooks:     make(map[K]func(S) error, len(hookMap)),
		waiting:        make(map[K][]*pendingHook[K, S, T]),
		pending:        make(map[K]*pendingHook[K, S, T], len(hookMap)),
	}

	for key, hook := range hookMap {
		requirements := hook.Requirements()
		if len(requirements) == 0 {
			cj.readyHooks[key] = hook.NormalPath
			continue
		}

		ph := &pendingHook[K, S, T]{
			key:              key,
			normalPathFunc:   hook.NormalPath,
			abnormalPathFunc: hook.AbnormalPath,
			missing:          len(requirements),
		}
		cj.pending[key] = ph
		for _, requirement := range requirements {
			cj.waiting[requirement] = append(cj.waiting[requirement], ph)
		}
	}

	return cj
}

// IsHookExist reports whether a hook is registered for key.
func (cj *ConditionJudger[K, S, T]) IsHookExist(key K) bool {
	if _, ok := cj.readyHooks[key]; ok {
		return true
	}
	_, ok := cj.pending[key]

	return ok
}

// HookEvent runs the hook of key with value and reports true when its
// requirements are satisfied. Otherwise value is pre-processed and kept
// until KeyEvent satisfies them.
func (cj *ConditionJudger[K, S, T]) HookEvent(key K, value S) (bool, error) {
	if fn := cj.readyHooks[key]; fn != nil {
		if err := fn(value); err != nil {
			return false, fmt.Errorf("failed to execute hook: %w", err)
		}

		return true, nil
	}

	ph, ok := cj.pending[key]
	if !ok {
		return false, ErrNoHooks
	}

	param, err := cj.preProcessFunc(value)
	if err != nil {
		return false, fmt.Errorf("failed to pre-process: %w", err)
	}
	ph.deferredParams = append(ph.deferredParams, param)

	return false, nil
}

// KeyEvent records that key has been seen and runs the deferred calls of
// every hook that becomes satisfied.
func (cj *ConditionJudger[K, S, T]) KeyEvent(key K) error {
	waiting := cj.waiting[key]
	// a key satisfies its hooks once, however often it occurs
	delete(cj.waiting, key)

	var errs []error
	for _, ph := range waiting {
		if ph.missing <= 0 {
			continue
		}
		ph.missing--
		if ph.missing > 0 {
			continue
		}

		cj.readyHooks[ph.key] = ph.normalPathFunc
		delete(cj.pending, ph.key)

		for _, param := range ph.deferredParams {
			if err := ph.abnormalPathFunc(param); err != nil {
				errs = append(errs, fmt.Errorf("failed to execute hook(%v): %w", ph.key, err))
			}
		}
		ph.deferredParams = nil
	}

	return errors.Join(errs...)
}
