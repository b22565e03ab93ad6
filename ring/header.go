package ring

import "fmt"

// Header field layout.
const (
	SubchannelShift = 13
	CountShift      = 18

	// MethodMask selects the method offset bits of a header.
	MethodMask = 0x1fff

	// NonIncrementing is set in headers whose data words all target the
	// same method instead of consecutive ones.
	NonIncrementing = 0x40000000

	// MaxSubchannel is the highest addressable subchannel.
	MaxSubchannel = 7

	// MaxCount is the largest word count a single header can carry. The
	// count field spans bits 18..28; a wider one would run into the
	// NonIncrementing flag at bit 30.
	MaxCount = 0x7ff

	// MaxMethod is the largest method offset a header can carry.
	MaxMethod = MethodMask

	subchannelMask = 0x7
	countMask      = MaxCount
)

// Header packs a method header for count words written to consecutive
// methods starting at method on the given subchannel.
//
// Out-of-range fields are programming errors and panic.
func Header(subchannel uint8, method uint32, count int) uint32 {
	checkFields(subchannel, method, count)
	return uint32(count)<<CountShift | uint32(subchannel)<<SubchannelShift | method
}

// HeaderNI packs a non-incrementing method header: every one of the count
// data words is written to method itself.
func HeaderNI(subchannel uint8, method uint32, count int) uint32 {
	return Header(subchannel, method, count) | NonIncrementing
}

func checkFields(subchannel uint8, method uint32, count int) {
	if subchannel > MaxSubchannel {
		panic(fmt.Sprintf("ring: subchannel %d out of range [0,%d]", subchannel, MaxSubchannel))
	}
	if method > MaxMethod {
		panic(fmt.Sprintf("ring: method 0x%x out of range [0,0x%x]", method, MaxMethod))
	}
	if count < 0 || count > MaxCount {
		panic(fmt.Sprintf("ring: word count %d out of range [0,%d]", count, MaxCount))
	}
}

// Method is a decoded method header.
type Method struct {
	Subchannel      uint8
	Method          uint32
	Count           int
	NonIncrementing bool
}

// DecodeHeader unpacks a header produced by Header or HeaderNI.
func DecodeHeader(w uint32) Method {
	return Method{
		Subchannel:      uint8(w >> SubchannelShift & subchannelMask),
		Method:          w & MethodMask,
		Count:           int(w >> CountShift & countMask),
		NonIncrementing: w&NonIncrementing != 0,
	}
}

// Target returns the method written by the i-th data word of the group.
func (m Method) Target(i int) uint32 {
	if m.NonIncrementing {
		return m.Method
	}
	return m.Method + uint32(i)*4
}

// String returns a human-readable form of the header.
func (m Method) String() string {
	ni := ""
	if m.NonIncrementing {
		ni = " ni"
	}
	return fmt.Sprintf("subc %d method 0x%04x count %d%s", m.Subchannel, m.Method, m.Count, ni)
}
