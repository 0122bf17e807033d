package config

import (
	"strconv"
)

type boolValue bool

func (v *boolValue) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*v = boolValue(b)
	return nil
}

func (v *boolValue) String() string {
	return strconv.FormatBool(bool(*v))
}

type intValue int

func (v *intValue) Set(s string) error {
	i, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*v = intValue(i)
	return nil
}

func (v *intValue) String() string {
	return strconv.Itoa(int(*v))
}

type stringValue string

func (v *stringValue) Set(s string) error {
	*v = stringValue(s)
	return nil
}

func (v *stringValue) String() string {
	return string(*v)
}
