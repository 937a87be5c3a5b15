package tools

import (
	"context"
	"encoding/json"

	"github.com/dwern/persona/internal/content"
)

// emptySchema is the input schema for tools that take no arguments.
var emptySchema = json.RawMessage(`{"type":"object","properties":{}}`)

// ProfileTool serves the static profile document.
type ProfileTool struct {
	store *content.Store
}

// NewProfileTool creates the profile tool.
func NewProfileTool(store *content.Store) *ProfileTool {
	return &ProfileTool{store: store}
}

func (t *ProfileTool) Name() string { return "profile_info" }

func (t *ProfileTool) Description() string {
	return "Returns background information about me: who I am, where I live, what I do for work, and my interests. Use this for any question about me as a person."
}

func (t *ProfileTool) InputSchema() json.RawMessage { return emptySchema }

func (t *ProfileTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	return t.store.Profile()
}

// PhotoTool serves the static photo-notes document.
type PhotoTool struct {
	store *content.Store
}

// NewPhotoTool creates the photo tool.
func NewPhotoTool(store *content.Store) *PhotoTool {
	return &PhotoTool{store: store}
}

func (t *PhotoTool) Name() string { return "photo_info" }

func (t *PhotoTool) Description() string {
	return "Returns notes about the photos on this site: where and when each was taken and what it shows. Use this for questions about the photography."
}

func (t *PhotoTool) InputSchema() json.RawMessage { return emptySchema }

func (t *PhotoTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	return t.store.Photos()
}
