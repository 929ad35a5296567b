// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// dbusbridge - BSH D-Bus Decoder and MQTT Bridge
//
// A CLI tool that extracts CRC-validated frames from the serial D-Bus of
// BSH household appliances and publishes them as hex strings to MQTT.

package main

import (
	"os"

	"github.com/Thermoquad/dbusbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
