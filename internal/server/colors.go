package server

// Presence colors, assigned by join order. Consecutive joiners always get
// distinct colors; the pool wraps after ten, which is acceptable collision.
var palette = []string{
	"#e74c3c", // red
	"#3498db", // blue
	"#2ecc71", // green
	"#f1c40f", // yellow
	"#9b59b6", // purple
	"#e67e22", // orange
	"#1abc9c", // teal
	"#e84393", // pink
	"#34495e", // slate
	"#795548", // brown
}

func colorFor(joinIndex uint64) string {
	return palette[joinIndex%uint64(len(palette))]
}
