package theme

import "github.com/charmbracelet/lipgloss"

// Color is an alias for lipgloss.Color for convenience
type Color = lipgloss.Color

// Brand colors
const (
	ColorPrimary   Color = "99" // Purple - app name, titles
	ColorSecondary Color = "86" // Cyan - subtitles
)

// Session status colors
const (
	ColorActive   Color = "2"   // Green - renting
	ColorAssigned Color = "33"  // Blue - waiting at the bay
	ColorCreated  Color = "245" // Light gray - not paid yet
	ColorFailed   Color = "196" // Bright red - payment failed
	ColorFinished Color = "8"   // Gray - complete, canceled
	ColorExpired  Color = "1"   // Red - ran out of time
	ColorQueued   Color = "3"   // Yellow - in queue
)

// Box status colors
const (
	ColorBusy        Color = "214" // Orange
	ColorCleaning    Color = "141" // Purple
	ColorFree        Color = "46"  // Bright green
	ColorMaintenance Color = "1"   // Red
	ColorReserved    Color = "226" // Yellow
)

// UI semantic colors
const (
	ColorError     Color = "196" // Bright red
	ColorHighlight Color = "255" // White - emphasis
	ColorMuted     Color = "241" // Gray - secondary text
	ColorNormal    Color = "250" // Default text
	ColorWarning   Color = "3"   // Yellow - running low
)
