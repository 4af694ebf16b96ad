package scale

// Scored group keys for SAT-style practice tests.
const (
	GroupReadingWriting = "rw"
	GroupMath           = "math"
)

// SATFloor is the documented minimum per-group scaled score. Raw counts
// outside the table fall back to it.
const SATFloor = 200

func init() {
	Register("sat.v1", map[string]Table{
		GroupReadingWriting: {
			Group: GroupReadingWriting,
			Floor: SATFloor,
			ByRaw: map[int]int{
				0: 200, 1: 220, 2: 240, 3: 250, 4: 270, 5: 290,
				6: 310, 7: 330, 8: 340, 9: 360, 10: 380, 11: 390,
				12: 400, 13: 410, 14: 420, 15: 420, 16: 430, 17: 440,
				18: 450, 19: 460, 20: 470, 21: 480, 22: 480, 23: 490,
				24: 500, 25: 500, 26: 510, 27: 520, 28: 530, 29: 530,
				30: 540, 31: 550, 32: 560, 33: 560, 34: 570, 35: 580,
				36: 590, 37: 600, 38: 600, 39: 610, 40: 620, 41: 630,
				42: 640, 43: 650, 44: 660, 45: 680, 46: 690, 47: 700,
				48: 710, 49: 720, 50: 730, 51: 750, 52: 760, 53: 780,
				54: 800,
			},
		},
		GroupMath: {
			Group: GroupMath,
			Floor: SATFloor,
			ByRaw: map[int]int{
				0: 200, 1: 220, 2: 230, 3: 250, 4: 260, 5: 280,
				6: 300, 7: 310, 8: 330, 9: 340, 10: 360, 11: 370,
				12: 380, 13: 390, 14: 400, 15: 410, 16: 420, 17: 430,
				18: 440, 19: 450, 20: 460, 21: 470, 22: 480, 23: 490,
				24: 500, 25: 510, 26: 520, 27: 530, 28: 540, 29: 550,
				30: 560, 31: 570, 32: 590, 33: 600, 34: 620, 35: 630,
				36: 640, 37: 660, 38: 670, 39: 690, 40: 700, 41: 720,
				42: 750, 43: 780, 44: 800,
			},
		},
	})
}
