/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ptptime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   Timestamp
		want Timestamp
	}{
		{in: Timestamp{Seconds: 1, Nanoseconds: 0}, want: Timestamp{Seconds: 1, Nanoseconds: 0}},
		{in: Timestamp{Seconds: 1, Nanoseconds: 1500000000}, want: Timestamp{Seconds: 2, Nanoseconds: 500000000}},
		{in: Timestamp{Seconds: 0, Nanoseconds: -1}, want: Timestamp{Seconds: -1, Nanoseconds: 999999999}},
		{in: Timestamp{Seconds: -3, Nanoseconds: -1500000000}, want: Timestamp{Seconds: -5, Nanoseconds: 500000000}},
		{in: Timestamp{Seconds: 2, Nanoseconds: -999999999}, want: Timestamp{Seconds: 1, Nanoseconds: 1}},
		{in: Timestamp{Seconds: -1, Nanoseconds: 2147483647}, want: Timestamp{Seconds: 1, Nanoseconds: 147483647}},
	}
	for _, c := range cases {
		got := c.in.Normalize()
		require.Equal(t, c.want, got, "normalizing %+v", c.in)
		require.Equal(t, c.in.TotalNanoseconds(), got.TotalNanoseconds(), "total changed for %+v", c.in)
		require.GreaterOrEqual(t, got.Nanoseconds, int32(0))
		require.Less(t, got.Nanoseconds, int32(1000000000))
	}
}

func TestAddSub(t *testing.T) {
	a := Timestamp{Seconds: 100, Nanoseconds: 0}
	b := Timestamp{Seconds: 99, Nanoseconds: 999900000}

	require.Equal(t, Timestamp{Seconds: 0, Nanoseconds: 100000}, a.Sub(b))
	require.Equal(t, Timestamp{Seconds: -1, Nanoseconds: 999900000}, b.Sub(a))
	require.Equal(t, Timestamp{Seconds: 199, Nanoseconds: 999900000}, a.Add(b))
	require.Equal(t, a, a.Sub(b).Add(b))
}

func TestDiv(t *testing.T) {
	require.Equal(t, Timestamp{Seconds: 0, Nanoseconds: 500000000}, Timestamp{Seconds: 1}.Div(2))
	require.Equal(t, Timestamp{Seconds: -1, Nanoseconds: 500000000}, Timestamp{Seconds: -1}.Div(2))
	// 3ns / 2 = 1ns, half a nanosecond is lost
	require.Equal(t, int64(1), Timestamp{Nanoseconds: 3}.Div(2).TotalNanoseconds())
	require.Equal(t, int64(-1), FromNanoseconds(-3).Div(2).TotalNanoseconds())
}

func TestFromNanoseconds(t *testing.T) {
	for _, ns := range []int64{0, 1, -1, 999999999, -999999999, 1000000000, -1000000000, 1234567890123, -1234567890123} {
		require.Equal(t, ns, FromNanoseconds(ns).TotalNanoseconds())
	}
}

func TestWholeSeconds(t *testing.T) {
	require.Equal(t, int64(0), FromNanoseconds(-1).WholeSeconds())
	require.Equal(t, int64(0), FromNanoseconds(999999999).WholeSeconds())
	require.Equal(t, int64(-1), FromNanoseconds(-1000000000).WholeSeconds())
	require.Equal(t, int64(-1), FromNanoseconds(-1999999999).WholeSeconds())
	require.Equal(t, int64(2), FromNanoseconds(2000000001).WholeSeconds())
}

func TestTicks(t *testing.T) {
	// 20MHz tick rate, 50ns per tick
	require.Equal(t, int64(2), Timestamp{Nanoseconds: 100}.Ticks(20000000))
	require.Equal(t, int64(20000001), Timestamp{Seconds: 1, Nanoseconds: 50}.Ticks(20000000))
	require.Equal(t, int64(-2), FromNanoseconds(-100).Ticks(20000000))
}

func TestTimeConversion(t *testing.T) {
	now := time.Unix(1674148530, 671467104)
	ts := FromTime(now)
	require.Equal(t, Timestamp{Seconds: 1674148530, Nanoseconds: 671467104}, ts)
	require.True(t, now.Equal(ts.Time()))
	require.Equal(t, -1500*time.Millisecond, FromDuration(-1500*time.Millisecond).Duration())
}

func TestString(t *testing.T) {
	require.Equal(t, "100.000150000", Timestamp{Seconds: 100, Nanoseconds: 150000}.String())
	require.Equal(t, "-1.500000000", FromNanoseconds(-1500000000).String())
	require.Equal(t, "-0.000000001", FromNanoseconds(-1).String())
	require.True(t, Timestamp{}.IsZero())
}
