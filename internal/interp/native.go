package interp

import (
	"github.com/clrfirmata/ilengine/internal/method"
	"github.com/clrfirmata/ilengine/internal/slot"
)

// invokeNative dispatches a SpecialMethod (spec.md §4.7 "Special
// methods"): a method with no IL, whose nativeMethod enumerator selects
// the external hook. ok mirrors the hook's own true/false return; a false
// return becomes MissingMethod at the call site (dispatchCall). frame is
// the caller's frame, passed through so a hook can inspect the managed
// stack it was invoked from (spec.md §6.1 native signature).
func (ip *Interpreter) invokeNative(frame *Frame, target *method.Descriptor, args []slot.Slot) (slot.Slot, bool) {
	if ip.Natives == nil {
		return slot.Slot{}, false
	}
	return ip.Natives.Invoke(frame, target.NativeMethod, args)
}
