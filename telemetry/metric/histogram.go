//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package metric

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

// dynamicHistogram is a Float64Histogram whose buckets can be replaced at
// runtime. Replacing recreates the instrument.
type dynamicHistogram struct {
	mu      sync.RWMutex
	h       metric.Float64Histogram
	mp      metric.MeterProvider
	name    string
	options []metric.Float64HistogramOption
}

func newDynamicHistogram(mp metric.MeterProvider, name string, options ...metric.Float64HistogramOption) (*dynamicHistogram, error) {
	h, err := mp.Meter(MeterName).Float64Histogram(name, options...)
	if err != nil {
		return nil, err
	}
	return &dynamicHistogram{h: h, mp: mp, name: name, options: options}, nil
}

func (d *dynamicHistogram) Record(ctx context.Context, v float64, opts ...metric.RecordOption) {
	d.mu.RLock()
	h := d.h
	d.mu.RUnlock()
	h.Record(ctx, v, opts...)
}

// SetBuckets recreates the instrument with boundaries. Empty boundaries
// restore the SDK defaults.
func (d *dynamicHistogram) SetBuckets(boundaries []float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	opts := append([]metric.Float64HistogramOption{}, d.options...)
	if len(boundaries) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(boundaries...))
	}
	h, err := d.mp.Meter(MeterName).Float64Histogram(d.name, opts...)
	if err != nil {
		return err
	}
	d.h = h
	return nil
}
