package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Insert(ctx context.Context, msg Message) error
	List(ctx context.Context, filter ListFilter) ([]Message, error)
}

type Service interface {
	Post(ctx context.Context, userID, tileID snowflake.ID, req PostRequest) (*MessageResponse, error)
	// List returns messages oldest first.
	List(ctx context.Context, userID, tileID snowflake.ID, req ListRequest) (*ListResponse, error)
}
