package engine

import (
	"fmt"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// Link — исходящее ребро с необязательной меткой ветки.
type Link struct {
	Target string
	Label  string
}

// Graph — представления смежности, построенные один раз на run.
//
// После BuildGraph граф только читается.
type Graph struct {
	// Nodes — все узлы графа (nodeID → NodeSpec).
	Nodes map[string]*domain.NodeSpec

	// Declared — ID узлов в порядке объявления.
	Declared []string

	// Out — соседи по исходящим рёбрам в порядке добавления рёбер.
	Out map[string][]string

	// OutLinks — то же, что Out, но с метками.
	OutLinks map[string][]Link

	// InDegree — количество входящих рёбер.
	InDegree map[string]int

	// Sources — различные узлы-источники входящих рёбер.
	Sources map[string][]string

	// Roots — узлы без входящих рёбер.
	Roots []string

	// Order — топологически отсортированный список узлов.
	Order []string
}

// BuildGraph строит граф из узлов и рёбер.
//
// Проверяет уникальность ID, существование концов рёбер,
// отсутствие петель и циклов.
func BuildGraph(nodes []domain.NodeSpec, edges []domain.EdgeSpec) (*Graph, error) {
	if len(nodes) == 0 {
		return nil, NewValidationError("", "nodes", "workflow has no nodes", ErrEmptyNodes)
	}

	g := &Graph{
		Nodes:    make(map[string]*domain.NodeSpec, len(nodes)),
		Declared: make([]string, 0, len(nodes)),
		Out:      make(map[string][]string, len(nodes)),
		OutLinks: make(map[string][]Link, len(nodes)),
		InDegree: make(map[string]int, len(nodes)),
		Sources:  make(map[string][]string, len(nodes)),
	}

	// Первый проход: узлы
	for i := range nodes {
		if err := g.addNode(nodes[i]); err != nil {
			return nil, err
		}
	}

	// Второй проход: рёбра
	for _, edge := range edges {
		if err := g.addEdge(edge); err != nil {
			return nil, err
		}
	}

	g.findRoots()

	order, err := g.topologicalSort()
	if err != nil {
		return nil, err
	}
	g.Order = order

	return g, nil
}

// addNode добавляет узел в граф.
func (g *Graph) addNode(node domain.NodeSpec) error {
	if node.ID == "" {
		return NewValidationError("", "id", "node has empty ID", ErrEmptyNodeID)
	}
	if _, exists := g.Nodes[node.ID]; exists {
		return NewValidationError(node.ID, "id",
			fmt.Sprintf("duplicate node ID: %s", node.ID), ErrDuplicateNodeID)
	}

	g.Nodes[node.ID] = &node
	g.Declared = append(g.Declared, node.ID)
	g.InDegree[node.ID] = 0
	return nil
}

// addEdge добавляет ребро.
// Повторные рёбра сохраняются: каждое увеличивает InDegree,
// а Sources остаются уникальными.
func (g *Graph) addEdge(edge domain.EdgeSpec) error {
	if _, ok := g.Nodes[edge.Source]; !ok {
		return NewValidationError(edge.Target, "source",
			fmt.Sprintf("edge %q references unknown source: %s", edge.ID, edge.Source), ErrUnknownNode)
	}
	if _, ok := g.Nodes[edge.Target]; !ok {
		return NewValidationError(edge.Source, "target",
			fmt.Sprintf("edge %q references unknown target: %s", edge.ID, edge.Target), ErrUnknownNode)
	}
	if edge.Source == edge.Target {
		return NewValidationError(edge.Source, "edges",
			"node depends on itself", ErrSelfDependency)
	}

	g.Out[edge.Source] = append(g.Out[edge.Source], edge.Target)
	g.OutLinks[edge.Source] = append(g.OutLinks[edge.Source], Link{Target: edge.Target, Label: edge.Label})
	g.InDegree[edge.Target]++

	for _, src := range g.Sources[edge.Target] {
		if src == edge.Source {
			return nil
		}
	}
	g.Sources[edge.Target] = append(g.Sources[edge.Target], edge.Source)
	return nil
}

// findRoots находит узлы без входящих рёбер (в порядке объявления).
func (g *Graph) findRoots() {
	g.Roots = make([]string, 0)
	for _, id := range g.Declared {
		if g.InDegree[id] == 0 {
			g.Roots = append(g.Roots, id)
		}
	}
}

// topologicalSort выполняет топологическую сортировку (алгоритм Кана).
// Возвращает ошибку, если обнаружен цикл.
func (g *Graph) topologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.InDegree))
	for id, n := range g.InDegree {
		inDegree[id] = n
	}

	queue := make([]string, len(g.Roots))
	copy(queue, g.Roots)

	order := make([]string, 0, len(g.Nodes))

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, next := range g.Out[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		var stuck string
		for _, id := range g.Declared {
			if inDegree[id] > 0 {
				stuck = id
				break
			}
		}
		return nil, NewValidationError(stuck, "edges",
			"cyclic dependency detected", ErrCyclicDependency)
	}

	return order, nil
}

// Node возвращает узел по ID.
func (g *Graph) Node(id string) *domain.NodeSpec {
	return g.Nodes[id]
}

// Size возвращает количество узлов.
func (g *Graph) Size() int {
	return len(g.Nodes)
}

// Triggers возвращает узлы kind=trigger в порядке объявления.
func (g *Graph) Triggers() []string {
	ids := make([]string, 0)
	for _, id := range g.Declared {
		if g.Nodes[id].IsTrigger() {
			ids = append(ids, id)
		}
	}
	return ids
}

// IsTerminal возвращает true для узлов без исходящих рёбер.
func (g *Graph) IsTerminal(id string) bool {
	return len(g.Out[id]) == 0
}
