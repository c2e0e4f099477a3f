package assets

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/van-studio/internal/scene"
	"github.com/Faultbox/van-studio/pkg/geom"
)

// decodeOBJ reads vertex positions of a Wavefront OBJ file. Every "o" or "g"
// statement starts a new mesh whose bounds cover the vertices declared after it.
func decodeOBJ(data []byte, kind scene.NodeKind, url string) (*scene.Node, error) {
	type group struct {
		id       string
		min, max mgl64.Vec3
		count    int
	}
	var (
		groups []*group
		cur    *group
		seen   = map[string]int{}
	)
	start := func(name string) {
		if name == "" {
			name = "mesh" + strconv.Itoa(len(groups))
		}
		if n := seen[name]; n > 0 {
			name += "#" + strconv.Itoa(n)
		}
		seen[name]++
		inf := math.Inf(1)
		cur = &group{id: name, min: mgl64.Vec3{inf, inf, inf}, max: mgl64.Vec3{-inf, -inf, -inf}}
		groups = append(groups, cur)
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "o", "g":
			start(strings.Join(fields[1:], " "))
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs three coordinates", line)
			}
			var p mgl64.Vec3
			for i := 0; i < 3; i++ {
				v, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				p[i] = v
			}
			if cur == nil {
				start("")
			}
			for i := 0; i < 3; i++ {
				cur.min[i] = math.Min(cur.min[i], p[i])
				cur.max[i] = math.Max(cur.max[i], p[i])
			}
			cur.count++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading obj: %w", err)
	}

	n := scene.NewNode(kind, path.Base(stripQuery(url)))
	for _, g := range groups {
		if g.count == 0 {
			continue
		}
		n.Meshes = append(n.Meshes, &scene.Mesh{
			ID:       g.id,
			Bounds:   geom.NewAABB(g.min, g.max),
			Material: &scene.Material{Color: fallbackColor},
		})
	}
	if len(n.Meshes) == 0 {
		return nil, errors.New("model has no vertices")
	}
	return n, nil
}
