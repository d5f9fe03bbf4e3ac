package gen

import (
	"attention-trainer-service/internal/domain"
	"attention-trainer-service/internal/rng"
)

var (
	mazeSizeByLevel        = []int{5, 6, 7, 8, 9}
	mazeCollectibleByLevel = []int{3, 4, 5, 6, 7}
)

// MazeTrackingGenerator carves a perfect maze with an iterative
// backtracker, then scatters numbered collectibles that must be clicked in
// ascending order. Wrong-order clicks are penalized by the runtime but do
// not block progress.
type MazeTrackingGenerator struct{}

func (g *MazeTrackingGenerator) ExerciseID() string { return domain.ExerciseMazeTracking }
func (g *MazeTrackingGenerator) Name() string       { return "Treasure Maze" }
func (g *MazeTrackingGenerator) Description() string {
	return "Collect the treasures in number order."
}

func (g *MazeTrackingGenerator) Generate(seed int64, difficulty, _ int) (domain.TrialSpec, error) {
	difficulty = clampDifficulty(difficulty, 1, len(mazeSizeByLevel))
	r := rng.New(seed)

	size := mazeSizeByLevel[difficulty-1]
	walls := carveMaze(r, size)

	cells := make([]domain.GridCell, 0, size*size)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			cells = append(cells, domain.GridCell{Row: row, Col: col})
		}
	}
	count := mazeCollectibleByLevel[difficulty-1]
	picked := rng.Shuffle(r, cells)[:count]
	collectibles := make([]domain.Collectible, 0, count)
	for i, cell := range picked {
		collectibles = append(collectibles, domain.Collectible{Order: i + 1, Cell: cell})
	}

	return domain.TrialSpec{
		StimulusMs:       15000,
		ResponseWindowMs: 20000,
		InterTrialMs:     1200,
		MazeTracking: &domain.MazeTrackingSpec{
			GridSize:     size,
			Walls:        walls,
			Collectibles: collectibles,
		},
	}, nil
}

// carveMaze runs an iterative depth-first backtracker over the cell grid
// and returns the walls left standing between adjacent cells.
func carveMaze(r *rng.Rand, size int) []domain.WallSegment {
	open := make(map[[4]int]bool)
	visited := make([]bool, size*size)
	idx := func(c domain.GridCell) int { return c.Row*size + c.Col }

	stack := []domain.GridCell{{Row: 0, Col: 0}}
	visited[0] = true
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		var candidates []domain.GridCell
		for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			next := domain.GridCell{Row: cur.Row + d[0], Col: cur.Col + d[1]}
			if next.Row < 0 || next.Row >= size || next.Col < 0 || next.Col >= size {
				continue
			}
			if !visited[idx(next)] {
				candidates = append(candidates, next)
			}
		}
		if len(candidates) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}
		next := rng.Pick(r, candidates)
		open[[4]int{cur.Row, cur.Col, next.Row, next.Col}] = true
		open[[4]int{next.Row, next.Col, cur.Row, cur.Col}] = true
		visited[idx(next)] = true
		stack = append(stack, next)
	}

	// Remaining interior walls, enumerated in fixed row-major order so the
	// wall list is deterministic.
	var walls []domain.WallSegment
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			cur := domain.GridCell{Row: row, Col: col}
			for _, d := range [][2]int{{0, 1}, {1, 0}} {
				next := domain.GridCell{Row: row + d[0], Col: col + d[1]}
				if next.Row >= size || next.Col >= size {
					continue
				}
				if !open[[4]int{cur.Row, cur.Col, next.Row, next.Col}] {
					walls = append(walls, domain.WallSegment{From: cur, To: next})
				}
			}
		}
	}
	return walls
}
