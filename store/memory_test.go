package store_test

import (
	"testing"

	"github.com/firstpersontravel/charter-sub005/store"
	"github.com/firstpersontravel/charter-sub005/store/storetest"
)

func TestMemory(t *testing.T) {
	storetest.Exercise(t, store.NewMemory())
}
