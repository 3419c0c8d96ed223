package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotAcquired indica que outra requisição já segura a chave.
var ErrNotAcquired = errors.New("lock: not acquired")

// Locker serializa operações concorrentes sobre a mesma chave
// (ex.: médico + dia na criação de hold online).
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// SlotKey é a chave usada para reservar a agenda de um médico em um dia.
func SlotKey(doctorID uint, date string) string {
	return fmt.Sprintf("clinic:slot-lock:%d:%s", doctorID, date)
}
