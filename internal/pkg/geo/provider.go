package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// StaticProvider reports a fixed position, for kiosks and fixed devices
type StaticProvider struct {
	Position Position
}

func (p StaticProvider) CurrentPosition(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	return p.Position, nil
}

// FileProvider reads the latest fix that a GPS daemon writes as JSON
// {"latitude": .., "longitude": ..} to a file
type FileProvider struct {
	Path string
}

func (p FileProvider) CurrentPosition(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}

	data, err := os.ReadFile(p.Path)
	switch {
	case errors.Is(err, os.ErrPermission):
		return Position{}, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case err != nil:
		return Position{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}

	var pos Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return Position{}, fmt.Errorf("%w: malformed fix: %v", ErrPositionUnavailable, err)
	}
	return pos, nil
}
