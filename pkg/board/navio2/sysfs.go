// Package navio2 drives the Navio2 through the RCIO kernel driver:
// PWM channels under /sys/class/pwm/pwmchip0 and decoded RC channels
// under /sys/kernel/rcio/rcin.
package navio2

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func writeValue(fn string, v interface{}) error {
	f, err := os.OpenFile(fn, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(f, v)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func readInt(fn string) (int, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
