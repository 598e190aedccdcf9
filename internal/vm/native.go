package vm

import "time"

// clockNative returns the seconds elapsed since the VM was created.
func (vm *VM) clockNative(args []Value) (Value, error) {
	return NumberValue(time.Since(vm.started).Seconds()), nil
}
