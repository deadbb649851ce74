package velodyne

import "fmt"

// ReturnMode is the raw return-mode byte of the packet trailer.
type ReturnMode uint8

const (
	ReturnStrongest ReturnMode = 0x37
	ReturnLast      ReturnMode = 0x38
	ReturnDual      ReturnMode = 0x39
)

func (m ReturnMode) String() string {
	switch m {
	case ReturnStrongest:
		return "strongest"
	case ReturnLast:
		return "last"
	case ReturnDual:
		return "dual"
	}
	return fmt.Sprintf("ReturnMode(0x%02x)", uint8(m))
}

// ProductID is the raw model byte of the packet trailer.
type ProductID uint8

const (
	ProductHDL32E    ProductID = 0x21
	ProductVLP16     ProductID = 0x22
	ProductPuckHiRes ProductID = 0x24
	ProductVLP32C    ProductID = 0x28
	ProductVelarray  ProductID = 0x31
	ProductVLS128    ProductID = 0xA1
)

func (p ProductID) String() string {
	switch p {
	case ProductHDL32E:
		return "HDL-32E"
	case ProductVLP16:
		return "VLP-16"
	case ProductPuckHiRes:
		return "Puck Hi-Res"
	case ProductVLP32C:
		return "VLP-32C"
	case ProductVelarray:
		return "Velarray"
	case ProductVLS128:
		return "VLS-128"
	}
	return fmt.Sprintf("ProductID(0x%02x)", uint8(p))
}

// FormatKind is the closed set of record shapes the extractor and
// converter know how to handle. The zero value is not a valid kind.
type FormatKind uint8

const (
	FormatSingle16 FormatKind = iota + 1
	FormatSingle32
	FormatDual16
	FormatDual32
)

// MaxBeams is the largest beam count of any FormatKind.
const MaxBeams = 32

func (k FormatKind) String() string {
	switch k {
	case FormatSingle16:
		return "single16"
	case FormatSingle32:
		return "single32"
	case FormatDual16:
		return "dual16"
	case FormatDual32:
		return "dual32"
	}
	return fmt.Sprintf("FormatKind(%d)", uint8(k))
}

// Valid reports whether k is one of the four defined kinds.
func (k FormatKind) Valid() bool {
	return k >= FormatSingle16 && k <= FormatDual32
}

// Beams returns the number of lasers per firing.
func (k FormatKind) Beams() int {
	switch k {
	case FormatSingle16, FormatDual16:
		return 16
	case FormatSingle32, FormatDual32:
		return 32
	}
	return 0
}

// Dual reports whether blocks arrive as (strongest, last) pairs.
func (k FormatKind) Dual() bool {
	return k == FormatDual16 || k == FormatDual32
}

// KindFor returns the kind for a beam count and return mode, or false when
// no layout exists.
func KindFor(beams int, dual bool) (FormatKind, bool) {
	switch {
	case beams == 16 && !dual:
		return FormatSingle16, true
	case beams == 16 && dual:
		return FormatDual16, true
	case beams == 32 && !dual:
		return FormatSingle32, true
	case beams == 32 && dual:
		return FormatDual32, true
	}
	return 0, false
}

// Resolve maps a product ID and return mode to a FormatKind. It returns
// false for models or modes with no supported layout, e.g. VLS-128 or
// Velarray; callers skip such packets.
func Resolve(product ProductID, mode ReturnMode) (FormatKind, bool) {
	var beams int
	switch product {
	case ProductVLP16, ProductPuckHiRes:
		beams = 16
	case ProductHDL32E, ProductVLP32C:
		beams = 32
	default:
		return 0, false
	}

	switch mode {
	case ReturnStrongest, ReturnLast:
		return KindFor(beams, false)
	case ReturnDual:
		return KindFor(beams, true)
	}
	return 0, false
}
