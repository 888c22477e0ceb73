package ports

import "context"

type Connectivity interface {
	IsConnected(ctx context.Context) bool
	Connect(ctx context.Context) bool
}
