// buscheck exercises an emulated lock controller from the master side
// of the bus. Point it at the serial port the emulator serves and it
// walks through a read, an unlock/lock cycle with read-back, a holding
// register write and an out-of-range probe that must come back as an
// illegal-data-address exception.
//
// Usage:
//   buscheck -port=/dev/ttyUSB0 -baud=19200 -slave=1 -lock=5

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/goburrow/modbus"
)

const (
	lockCount = 48

	coilOn  = 0xFF00
	coilOff = 0x0000

	excIllegalAddress = 2
)

func main() {
	port := flag.String("port", "/dev/ttyUSB0", "Serial port the emulator serves")
	baud := flag.Int("baud", 19200, "Baud rate")
	slave := flag.Int("slave", 1, "Slave address of the controller under test")
	lock := flag.Int("lock", 5, "Lock number (1-based) to cycle")
	flag.Parse()

	if *lock < 1 || *lock > lockCount {
		log.Fatalf("lock must be 1..%d, got %d", lockCount, *lock)
	}

	handler := modbus.NewRTUClientHandler(*port)
	handler.BaudRate = *baud
	handler.DataBits = 8
	handler.Parity = "N"
	handler.StopBits = 1
	handler.SlaveId = byte(*slave)
	handler.Timeout = 500 * time.Millisecond

	if err := handler.Connect(); err != nil {
		log.Fatalf("connect %s at %d: %v", *port, *baud, err)
	}
	defer handler.Close()

	client := modbus.NewClient(handler)
	coil := uint16(*lock - 1)
	failed := 0

	check := func(name string, err error) {
		if err != nil {
			failed++
			fmt.Printf("FAIL  %s: %v\n", name, err)
			return
		}
		fmt.Printf("ok    %s\n", name)
	}

	// All 48 lock states in one read.
	states, err := client.ReadCoils(0, lockCount)
	if err == nil && len(states) != lockCount/8 {
		err = fmt.Errorf("got %d state bytes, want %d", len(states), lockCount/8)
	}
	check("read all lock states", err)

	// Unlock, read back, lock again, read back.
	_, err = client.WriteSingleCoil(coil, coilOff)
	check(fmt.Sprintf("unlock #%d", *lock), err)
	check(fmt.Sprintf("read back #%d unlocked", *lock), expectCoil(client, coil, false))

	_, err = client.WriteSingleCoil(coil, coilOn)
	check(fmt.Sprintf("lock #%d", *lock), err)
	check(fmt.Sprintf("read back #%d locked", *lock), expectCoil(client, coil, true))

	// Holding register round-trip.
	_, err = client.WriteSingleRegister(0x0004, 0x1234)
	check("write holding register 0x0004", err)
	regs, err := client.ReadHoldingRegisters(0x0004, 1)
	if err == nil && (len(regs) != 2 || regs[0] != 0x12 || regs[1] != 0x34) {
		err = fmt.Errorf("read back % X, want 12 34", regs)
	}
	check("read back holding register 0x0004", err)

	// A request past the last lock must be refused, not ignored.
	_, err = client.ReadCoils(lockCount, 1)
	check("out-of-range read rejected", expectException(err, excIllegalAddress))

	if failed > 0 {
		fmt.Printf("\n%d check(s) failed\n", failed)
		os.Exit(1)
	}
	fmt.Println("\nall checks passed")
}

func expectCoil(client modbus.Client, coil uint16, want bool) error {
	res, err := client.ReadCoils(coil, 1)
	if err != nil {
		return err
	}
	if len(res) != 1 {
		return fmt.Errorf("got %d state bytes, want 1", len(res))
	}
	got := res[0]&0x01 == 0x01
	if got != want {
		return fmt.Errorf("coil reads %v, want %v", got, want)
	}
	return nil
}

func expectException(err error, code byte) error {
	if err == nil {
		return errors.New("request succeeded, expected an exception")
	}
	var me *modbus.ModbusError
	if !errors.As(err, &me) {
		return fmt.Errorf("non-protocol error: %w", err)
	}
	if me.ExceptionCode != code {
		return fmt.Errorf("exception code %d, want %d", me.ExceptionCode, code)
	}
	return nil
}
