/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package backend

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/streamworks/streamctl/cmn/nlog"
)

// MultiDriver fans a HeadObject check out across several backing
// drivers concurrently (e.g. a bucket per cloud region), waits for all
// of them, and reports the size from the first driver, in the order
// given, that confirms the object. Grounded on the
// teacher's concurrent multi-target fan-out in reb/ and dsort/, which
// use errgroup the same way to query several peers at once.
type MultiDriver struct {
	drivers []Driver
}

func NewMultiDriver(drivers ...Driver) *MultiDriver {
	return &MultiDriver{drivers: drivers}
}

func (m *MultiDriver) HeadObject(objectID uint64) (size int64, found bool, err error) {
	type result struct {
		size  int64
		found bool
	}
	results := make([]result, len(m.drivers))

	g, _ := errgroup.WithContext(context.Background())
	for i, d := range m.drivers {
		i, d := i, d
		g.Go(func() error {
			sz, ok, derr := d.HeadObject(objectID)
			if derr != nil {
				nlog.Warningf("backend/multi: driver %d failed for object %d: %v", i, objectID, derr)
				return nil // one failing backend does not fail the whole query
			}
			results[i] = result{size: sz, found: ok}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.found {
			return r.size, true, nil
		}
	}
	return 0, false, nil
}
