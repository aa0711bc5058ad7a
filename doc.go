// go-uhf
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-uhf.
//
// go-uhf is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-uhf is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-uhf; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

/*
Package uhf reads the TID of a tag held against a serial UHF RFID reader.

The reader speaks a small framed protocol: requests start with 'S' 'W',
responses with 'C' 'T', and every frame ends in a one-byte checksum equal to
the two's complement of the sum of the preceding bytes. Reading a tag takes
four exchanges, always in the same order:

  - SetWorkMode puts the reader in answer mode
  - SetInterfaceRS232 selects the serial interface
  - SetInquiryAreaTID makes inventories report the TID memory bank
  - ReadTagID runs the inventory; bytes 12 to 24 of the answer are the TID

Each response must pass its checksum before the next command is written. Any
failure aborts the sequence; calling ReadTagID again restarts it from the
first command.

Basic Usage:

	import (
	    uhf "github.com/ZaparooProject/go-uhf"
	    "github.com/ZaparooProject/go-uhf/transport/uart"
	)

	t, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}

	reader, err := uhf.New(t, uhf.WithTimeout(time.Second))
	if err != nil {
	    log.Fatal(err)
	}
	defer reader.Close()

	id, err := reader.ReadTagID()
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("TagID: %s\n", id)

Transport Selection:

  - transport/uart: USB-to-serial adapters and native ports (115200 8N1)
  - transport/tcp: serial-to-Ethernet bridges
  - transport: Open picks one from a connection string such as
    "/dev/ttyUSB0", "COM3" or "tcp://10.0.0.5:4001"

Continuous Scanning:

The polling package re-runs the sequence on an interval, tracks whether a
tag is in the field and fires callbacks when one arrives, changes or leaves.

Error Handling:

Failures are typed and can be inspected with errors.Is and errors.As:

	var pe *uhf.ProtocolError
	switch {
	case errors.As(err, &pe):
	    // a response failed its checksum, or no response came
	case uhf.IsRetryable(err):
	    // worth reissuing the whole sequence
	}

Thread Safety:

A Reader serializes its own calls, so one Reader may be shared between
goroutines. Only one sequence is on the wire at a time.
*/
package uhf
