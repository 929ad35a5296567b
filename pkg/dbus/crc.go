// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dbus

import "math/bits"

// CRCParams describes a CRC-16 variant in the Rocksoft model
type CRCParams struct {
	Polynomial    uint16
	Initial       uint16
	XorOut        uint16
	ReverseInput  bool
	ReverseOutput bool
}

// CRCXModem is the profile used to validate D-Bus frames
var CRCXModem = CRCParams{
	Polynomial: 0x1021,
	Initial:    0x0000,
	XorOut:     0x0000,
}

// CRC16 is a bitwise CRC-16 engine for any CRCParams
type CRC16 struct {
	params CRCParams
	crc    uint16
}

// NewCRC16 creates an engine with its register set to the initial value
func NewCRC16(params CRCParams) *CRC16 {
	c := &CRC16{params: params}
	c.Restart()
	return c
}

// Params returns the engine's parameters
func (c *CRC16) Params() CRCParams {
	return c.params
}

// Restart resets the register to the initial value
func (c *CRC16) Restart() {
	c.crc = c.params.Initial
}

// Add feeds one byte into the register
func (c *CRC16) Add(b byte) {
	if c.params.ReverseInput {
		b = bits.Reverse8(b)
	}
	c.crc ^= uint16(b) << 8
	for i := 0; i < 8; i++ {
		if c.crc&0x8000 != 0 {
			c.crc = (c.crc << 1) ^ c.params.Polynomial
		} else {
			c.crc <<= 1
		}
	}
}

// AddBytes feeds every byte of data into the register
func (c *CRC16) AddBytes(data []byte) {
	for _, b := range data {
		c.Add(b)
	}
}

// Calc returns the finalized CRC without modifying the register
func (c *CRC16) Calc() uint16 {
	res := c.crc
	if c.params.ReverseOutput {
		res = bits.Reverse16(res)
	}
	return res ^ c.params.XorOut
}

// ChecksumCRC16 computes the CRC of data with the given parameters
func ChecksumCRC16(params CRCParams, data []byte) uint16 {
	c := NewCRC16(params)
	c.AddBytes(data)
	return c.Calc()
}
