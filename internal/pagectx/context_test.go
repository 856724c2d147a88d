package pagectx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/siteharvest/internal/ipc"
)

func TestRootInvariants(t *testing.T) {
	root := NewRoot("https://wiki.example.com/")
	assert.Equal(t, 0, root.Depth)
	assert.Empty(t, root.ParentID)
	assert.Equal(t, []string{}, root.PathSegments)
}

func TestDepthEqualsPathSegmentsLengthAfterResolution(t *testing.T) {
	root := NewRoot("https://wiki.example.com/")
	root.ResolveTitle("Home")

	child := NewChild(root, "https://wiki.example.com/a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4", ipc.Link{})
	child.ResolveTitle("Getting Started")

	assert.Equal(t, child.Depth, len(child.PathSegments))
	assert.Equal(t, []string{"Getting_Started"}, child.PathSegments)

	grandchild := NewChild(child, "https://wiki.example.com/deadbeefdeadbeefdeadbeefdeadbeef", ipc.Link{})
	grandchild.ResolveTitle("Installation")

	assert.Equal(t, grandchild.Depth, len(grandchild.PathSegments))
	assert.Equal(t, []string{"Getting_Started", "Installation"}, grandchild.PathSegments)
}

func TestParentIDEmptyIffDepthZero(t *testing.T) {
	root := NewRoot("https://wiki.example.com/")
	assert.True(t, root.ParentID == "" && root.Depth == 0)

	child := NewChild(root, "https://wiki.example.com/a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4", ipc.Link{})
	assert.False(t, child.ParentID == "" || child.Depth == 0)
}

func TestSnapshotRoundTrip(t *testing.T) {
	root := NewRoot("https://wiki.example.com/")
	root.ResolveTitle("Home")
	child := NewChild(root, "https://wiki.example.com/a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4", ipc.Link{})
	child.ResolveTitle("Getting Started")

	snap := child.Snapshot()
	restored := FromSnapshot(snap)

	require.Equal(t, child.ID, restored.ID)
	assert.Equal(t, child.URL, restored.URL)
	assert.Equal(t, child.Depth, restored.Depth)
	assert.Equal(t, child.PathSegments, restored.PathSegments)
	assert.Equal(t, child.ParentID, restored.ParentID)
	assert.Nil(t, restored.Children)
}
