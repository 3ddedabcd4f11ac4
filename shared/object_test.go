package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var widgetKind = FourCC('w', 'd', 'g', 't')

type widget struct {
	*Base
	destroyed bool
}

func newWidget() *widget {
	w := &widget{}
	w.Base = NewBase(w, widgetKind)
	return w
}

func (w *widget) OnFirstRetain() {}
func (w *widget) OnLastRetain()  { w.destroyed = true }

func TestBase_RetainReleaseLifecycle(t *testing.T) {
	w := newWidget()
	require.EqualValues(t, widgetKind, w.GetObjectID())

	w.RetainObject()
	require.EqualValues(t, 1, w.GetRetainCount())

	w.RetainObject()
	require.EqualValues(t, 2, w.GetRetainCount())

	w.ReleaseObject(false)
	assert.False(t, w.destroyed)

	w.ReleaseObject(false)
	assert.True(t, w.destroyed)
}

func TestBase_WeakPromoteFailsAfterLastRelease(t *testing.T) {
	w := newWidget()
	w.RetainObject()
	weak := w.NewWeak()

	w.ReleaseObject(false)
	assert.True(t, w.destroyed)

	_, ok := weak.Promote()
	assert.False(t, ok)

	weak.Release()
}

func TestBase_WeakPromoteSucceedsWhileAlive(t *testing.T) {
	w := newWidget()
	w.RetainObject()
	weak := w.NewWeak()

	obj, ok := weak.Promote()
	require.True(t, ok)
	require.Same(t, Object(w), obj)
	obj.ReleaseObject(false) // balance the promotion's implicit retain

	w.ReleaseObject(false)
	weak.Release()
}
