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

/*
Package clock contains the hardware clock abstraction driven by the PTP slave.

The slave thinks in terms of a tick counter that advances by a fixed increment
on every oscillator cycle scaled by a 32 bit addend accumulator. Device
implementations translate addend writes and clock jumps into whatever the
underlying clock understands:
  - PHC and System map them onto CLOCK_ADJTIME frequency and offset adjustments.
  - FreeRunning only records what was requested.
*/
package clock
