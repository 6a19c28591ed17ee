// Package ratelimit реализует fixed window ограничение числа запросов.
//
// На каждую область (scope) хранится пара «начало окна, счётчик».
// Проверка и инкремент выполняются в одной критической секции,
// поэтому даже при параллельном всплеске запросов допускается не более
// limit запросов за окно. Лишние запросы отклоняются, в очередь не ставятся.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// GlobalScope - общая область для всех клиентов.
const GlobalScope = "global"

// Decision - результат Admit.
type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

type window struct {
	start time.Time
	count int
}

// Limiter - fixed window лимитер.
type Limiter struct {
	mu     sync.Mutex
	scopes map[string]*window

	limit  int
	window time.Duration
	now    func() time.Time
}

// New создаёт лимитер на limit запросов за окно длительностью w.
// now может быть nil - тогда используется time.Now (монотонные часы).
func New(limit int, w time.Duration, now func() time.Time) *Limiter {
	if limit < 0 {
		limit = 0
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		scopes: make(map[string]*window),
		limit:  limit,
		window: w,
		now:    now,
	}
}

// Admit решает, пропустить ли запрос в области scope.
//
//  1. если now вне текущего окна (now >= start+W) - окно сбрасывается: start=now, count=0;
//  2. если count < limit - count++ и Allowed;
//  3. иначе Denied.
func (l *Limiter) Admit(scope string) Decision {
	if scope == "" {
		scope = GlobalScope
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.scopes[scope]
	if !ok {
		w = &window{start: now}
		l.scopes[scope] = w
	} else if !now.Before(w.start.Add(l.window)) {
		w.start = now
		w.count = 0
	}

	if w.count < l.limit {
		w.count++
		return Allowed
	}
	return Denied
}

// Count возвращает число пропущенных запросов в текущем окне области.
func (l *Limiter) Count(scope string) int {
	if scope == "" {
		scope = GlobalScope
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.scopes[scope]
	if !ok || !l.now().Before(w.start.Add(l.window)) {
		return 0
	}
	return w.count
}

// Limit возвращает потолок запросов за окно.
func (l *Limiter) Limit() int { return l.limit }

// Sweep удаляет закончившиеся окна и возвращает, сколько удалено.
// Нужен для режима «по IP», где областей может быть много.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for scope, w := range l.scopes {
		if !now.Before(w.start.Add(l.window)) {
			delete(l.scopes, scope)
			removed++
		}
	}
	return removed
}

// RunSweeper периодически вызывает Sweep до отмены ctx.
func (l *Limiter) RunSweeper(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			l.Sweep()
		}
	}
}
