package inference

import "fmt"

// VMRDClasses are the object classes of the Visual Manipulation
// Relationship Dataset, index 0 reserved for background.
var VMRDClasses = []string{
	"__background__",
	"box", "banana", "notebook", "screwdriver", "toothpaste", "apple",
	"stapler", "mobile phone", "bottle", "pen", "mouse", "umbrella",
	"remote controller", "cans", "tape", "knife", "wrench", "cup", "charger",
	"badminton", "wallet", "wrist developer", "glasses", "pliers", "headset",
	"toothbrush", "card", "paper", "towel", "shaver", "watch",
}

// ClassName returns the VMRD class name for a class id.
func ClassName(classID int) string {
	if classID >= 0 && classID < len(VMRDClasses) {
		return VMRDClasses[classID]
	}
	return fmt.Sprintf("unknown_%d", classID)
}

// ClassMapping returns a mapping of class names to their ids.
func ClassMapping() map[string]int {
	mapping := make(map[string]int)
	for i, className := range VMRDClasses {
		mapping[className] = i
	}
	return mapping
}
