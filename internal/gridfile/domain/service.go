package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, file GridFile) error
	FindByID(ctx context.Context, id snowflake.ID) (*GridFile, error)
	ListByGrid(ctx context.Context, gridID snowflake.ID) ([]GridFile, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

type Service interface {
	// Register records the file and returns a presigned upload URL.
	Register(ctx context.Context, userID, gridID snowflake.ID, req RegisterRequest) (*FileResponse, error)
	List(ctx context.Context, userID, gridID snowflake.ID) ([]FileResponse, error)
	Get(ctx context.Context, userID, fileID snowflake.ID) (*FileResponse, error)
	Delete(ctx context.Context, userID, fileID snowflake.ID) error
}
