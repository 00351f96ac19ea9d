package neat

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/baldhumanity/dinotrain"
)

// genomeJSON is the exchange format of a single genome.
type genomeJSON struct {
	InputSize   int               `json:"inputSize"`
	OutputSize  int               `json:"outputSize"`
	NextNodeID  int               `json:"nextNodeId"`
	Nodes       []*NodeGene       `json:"nodes"`
	Connections []*ConnectionGene `json:"connections"`
}

func toGenomeJSON(g *Genome) genomeJSON {
	return genomeJSON{
		InputSize:   g.InputSize,
		OutputSize:  g.OutputSize,
		NextNodeID:  g.NextNodeID,
		Nodes:       g.Nodes,
		Connections: g.Connections,
	}
}

// genome builds and validates a fresh genome from the decoded form.
func (gj genomeJSON) genome() (*Genome, error) {
	g := newBareGenome(gj.InputSize, gj.OutputSize)
	g.NextNodeID = gj.NextNodeID
	g.Nodes = make([]*NodeGene, 0, len(gj.Nodes))
	for _, n := range gj.Nodes {
		if n == nil {
			return nil, fmt.Errorf("%w: nil node gene", dinotrain.ErrInvalidModel)
		}
		g.Nodes = append(g.Nodes, n.Copy())
	}
	g.Connections = make([]*ConnectionGene, 0, len(gj.Connections))
	for _, c := range gj.Connections {
		if c == nil {
			return nil, fmt.Errorf("%w: nil connection gene", dinotrain.ErrInvalidModel)
		}
		g.Connections = append(g.Connections, c.Copy())
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// MarshalGenome encodes a genome as
// {inputSize, outputSize, nextNodeId, nodes: [{id,type,layer}], connections: [{innovation,from,to,weight,enabled}]}.
func MarshalGenome(g *Genome) ([]byte, error) {
	data, err := json.Marshal(toGenomeJSON(g))
	if err != nil {
		return nil, fmt.Errorf("failed to encode genome: %w", err)
	}
	return data, nil
}

// UnmarshalGenome decodes and validates a genome, then replays every connection through tracker
// so imported genes share innovation numbers with genomes already in memory. The tracker is only
// touched once the genome is known to be valid.
func UnmarshalGenome(data []byte, tracker *InnovationTracker) (*Genome, error) {
	g, err := decodeGenome(data)
	if err != nil {
		return nil, err
	}
	g.replayInnovations(tracker)
	return g, nil
}

func decodeGenome(data []byte) (*Genome, error) {
	var gj genomeJSON
	if err := json.Unmarshal(data, &gj); err != nil {
		return nil, fmt.Errorf("%w: %v", dinotrain.ErrInvalidModel, err)
	}
	return gj.genome()
}

func (g *Genome) replayInnovations(tracker *InnovationTracker) {
	for _, c := range g.Connections {
		c.Innovation = tracker.Innovation(c.From, c.To)
	}
}

// --------------------------- Checkpoint ---------------------------

type speciesState struct {
	ID             int        `json:"id"`
	Created        int        `json:"created"`
	BestFitness    float64    `json:"bestFitness"`
	Staleness      int        `json:"staleness"`
	Representative genomeJSON `json:"representative"`
}

// populationState holds the parts of a Population needed to resume evolution.
type populationState struct {
	Config            Config             `json:"config"`
	Generation        int                `json:"generation"`
	InnovationCounter int                `json:"innovationCounter"`
	Innovations       []InnovationRecord `json:"innovations"`
	Genomes           []genomeJSON       `json:"genomes"`
	Species           []speciesState     `json:"species"`
	SpeciesIndexer    int                `json:"speciesIndexer"`
}

// SaveCheckpoint writes the population to a gzip-compressed JSON file.
func (p *Population) SaveCheckpoint(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)

	state := populationState{
		Config:            p.Config,
		Generation:        p.Generation,
		InnovationCounter: p.Tracker.Current(),
		Innovations:       p.Tracker.Records(),
		Genomes:           make([]genomeJSON, len(p.Genomes)),
		SpeciesIndexer:    p.SpeciesSet.Indexer,
	}
	for i, g := range p.Genomes {
		state.Genomes[i] = toGenomeJSON(g)
	}
	for _, s := range p.SpeciesSet.Species {
		state.Species = append(state.Species, speciesState{
			ID:             s.ID,
			Created:        s.Created,
			BestFitness:    s.BestFitness,
			Staleness:      s.Staleness,
			Representative: toGenomeJSON(s.Representative),
		})
	}

	if err := json.NewEncoder(gzWriter).Encode(state); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode population data: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush checkpoint '%s': %w", filePath, err)
	}
	p.logger().Info("checkpoint saved", "path", filePath, "generation", p.Generation)
	return nil
}

// LoadCheckpoint restores a Population saved by SaveCheckpoint. Every genome is validated
// before the population is assembled. A nil rng is replaced by a time-seeded source.
func LoadCheckpoint(checkpointPath string, rng *rand.Rand) (*Population, error) {
	file, err := os.Open(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", checkpointPath, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gzReader.Close()

	var state populationState
	if err := json.NewDecoder(gzReader).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode population data from checkpoint: %w", err)
	}
	if err := state.Config.Validate(); err != nil {
		return nil, err
	}
	if len(state.Genomes) != state.Config.PopulationSize {
		return nil, fmt.Errorf("%w: checkpoint holds %d genomes for population size %d",
			dinotrain.ErrInvalidModel, len(state.Genomes), state.Config.PopulationSize)
	}

	p, err := newPopulationShell(state.Config, rng)
	if err != nil {
		return nil, err
	}
	p.Generation = state.Generation
	p.Tracker = restoreTracker(state.Innovations, state.InnovationCounter)
	p.Reproduction.Tracker = p.Tracker

	p.Genomes = make([]*Genome, len(state.Genomes))
	for i, gj := range state.Genomes {
		g, err := gj.genome()
		if err != nil {
			return nil, fmt.Errorf("genome %d: %w", i, err)
		}
		g.SetHiddenActivation(p.hidden)
		p.Genomes[i] = g
	}

	p.SpeciesSet.Indexer = max(1, state.SpeciesIndexer)
	for _, ss := range state.Species {
		rep, err := ss.Representative.genome()
		if err != nil {
			return nil, fmt.Errorf("species %d representative: %w", ss.ID, err)
		}
		rep.SetHiddenActivation(p.hidden)
		s := NewSpecies(ss.ID, ss.Created, rep)
		s.Members = nil
		s.BestFitness = ss.BestFitness
		s.Staleness = ss.Staleness
		p.SpeciesSet.Species = append(p.SpeciesSet.Species, s)
		p.SpeciesSet.Indexer = max(p.SpeciesSet.Indexer, ss.ID+1)
	}

	p.logger().Info("checkpoint loaded", "path", checkpointPath, "generation", p.Generation)
	return p, nil
}
