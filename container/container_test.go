package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-darr/comm"
	"github.com/robert-malhotra/go-darr/darr"
)

func singleRank(t *testing.T) comm.Communicator {
	t.Helper()
	return comm.NewLocalGroup(1)[0]
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, []string{}, SplitPath("/"))
	assert.Equal(t, []string{"a", "b"}, SplitPath("/a/b/"))
	assert.Equal(t, "/", CleanPath(""))
	assert.Equal(t, "/a/b", CleanPath("a/b/"))
	assert.Equal(t, "/x", joinPath("/", "x"))
	assert.Equal(t, "/a/x", joinPath("/a", "x"))
}

func TestTreeBuildAndLookup(t *testing.T) {
	root := NewRoot(singleRank(t))

	obs, err := root.CreateGroup("observations")
	require.NoError(t, err)
	_, err = obs.CreateGroup("day1")
	require.NoError(t, err)
	_, err = obs.CreateDataset("vis", darr.Float64, []int{4, 10}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"day1", "vis"}, obs.Members())

	n, err := root.Get("/observations/vis")
	require.NoError(t, err)
	assert.Equal(t, "/observations/vis", n.Path())
	assert.Equal(t, "vis", n.Name())

	g, err := root.Group("observations/day1")
	require.NoError(t, err)
	assert.Equal(t, "/observations/day1", g.Path())

	d, err := root.Dataset("observations/vis")
	require.NoError(t, err)
	assert.True(t, d.Distributed())
	assert.Equal(t, []int{4, 10}, d.Shape())

	// Root resolves to itself.
	self, err := root.Get("/")
	require.NoError(t, err)
	assert.Equal(t, Node(root), self)
}

func TestLookupErrors(t *testing.T) {
	root := NewRoot(singleRank(t))
	_, err := root.CreateGroup("g")
	require.NoError(t, err)
	_, err = root.CreateDataset("d", darr.Int32, []int{3}, 0)
	require.NoError(t, err)

	_, err = root.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = root.Get("d/child")
	assert.ErrorIs(t, err, ErrNotGroup)

	_, err = root.Group("d")
	assert.ErrorIs(t, err, ErrNotGroup)

	_, err = root.Dataset("g")
	assert.ErrorIs(t, err, ErrNotDataset)

	_, err = root.CreateGroup("g")
	assert.ErrorIs(t, err, ErrExists)

	_, err = root.CreateReplicated("bad/name", darr.Int32, []int{1}, make([]byte, 4))
	assert.ErrorIs(t, err, ErrBadName)
}

func TestAttributes(t *testing.T) {
	root := NewRoot(singleRank(t))
	require.NoError(t, root.SetAttr("telescope", StringValue("pathfinder")))
	require.NoError(t, root.SetAttr("nfreq", IntValue(1024)))
	require.NoError(t, root.SetAttr("bandwidth", FloatValue(400.25)))
	require.NoError(t, root.SetAttr("seed", UintValue(1<<40)))
	require.NoError(t, root.SetAttr("window", Float64sValue([]float64{0.5, 1, 0.5})))

	assert.Equal(t, []string{"telescope", "nfreq", "bandwidth", "seed", "window"}, root.AttrNames())

	v, err := root.Attr("telescope")
	require.NoError(t, err)
	s, err := v.Str()
	require.NoError(t, err)
	assert.Equal(t, "pathfinder", s)

	v, err = root.Attr("nfreq")
	require.NoError(t, err)
	i, err := v.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(1024), i)

	// Wrong-kind accessors fail.
	_, err = v.Str()
	assert.Error(t, err)

	v, err = root.Attr("window")
	require.NoError(t, err)
	dtype, shape, raw, err := v.Array()
	require.NoError(t, err)
	assert.Equal(t, darr.Float64, dtype)
	assert.Equal(t, []int{3}, shape)
	assert.Equal(t, []float64{0.5, 1, 0.5}, darr.AsFloat64s(raw))

	_, err = root.Attr("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Overwriting keeps the original position.
	require.NoError(t, root.SetAttr("telescope", StringValue("production")))
	assert.Equal(t, "telescope", root.AttrNames()[0])
}

func TestReplicatedDataset(t *testing.T) {
	root := NewRoot(singleRank(t))
	data := darr.PutInt32s([]int32{1, 2, 3, 4, 5, 6})
	d, err := root.CreateReplicated("index", darr.Int32, []int{2, 3}, data)
	require.NoError(t, err)

	assert.False(t, d.Distributed())
	got, err := d.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = d.Array()
	assert.ErrorIs(t, err, ErrReplicated)

	_, err = root.CreateReplicated("short", darr.Int32, []int{4}, data)
	assert.Error(t, err)
}

func TestDistributedDatasetAcrossRanks(t *testing.T) {
	err := comm.Spawn(4, func(c comm.Communicator) error {
		root := NewRoot(c)
		d, err := root.CreateDataset("vis", darr.Float64, []int{4, 100}, 0)
		if err != nil {
			return err
		}
		arr, err := d.Array()
		if err != nil {
			return err
		}
		assert.Equal(t, []int{1, 100}, arr.LocalShape())
		assert.Equal(t, c.Rank(), arr.LocalOffset())

		_, err = d.Bytes()
		assert.ErrorIs(t, err, ErrDistributed)
		return nil
	})
	require.NoError(t, err)
}

// One rank creating a dataset with a different shape must fail on every
// rank with the divergent rank named, and must not hang.
func TestCreateDatasetShapeMismatch(t *testing.T) {
	err := comm.Spawn(4, func(c comm.Communicator) error {
		root := NewRoot(c)
		shape := []int{4, 100}
		if c.Rank() == 1 {
			shape = []int{8, 100}
		}
		_, err := root.CreateDataset("vis", darr.Float64, shape, 0)
		var mismatch *darr.MismatchError
		if assert.ErrorAs(t, err, &mismatch) {
			assert.Equal(t, 1, mismatch.Rank)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestCreateGroupNameMismatch(t *testing.T) {
	err := comm.Spawn(2, func(c comm.Communicator) error {
		root := NewRoot(c)
		name := "cal"
		if c.Rank() == 1 {
			name = "raw"
		}
		_, err := root.CreateGroup(name)
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestCreateDatasetFrom(t *testing.T) {
	err := comm.Spawn(2, func(c comm.Communicator) error {
		arr, err := darr.New(c, []int{6, 3}, darr.Int32, 0)
		if err != nil {
			return err
		}
		root := NewRoot(c)
		d, err := root.CreateDatasetFrom("gains", arr)
		if err != nil {
			return err
		}
		assert.Equal(t, []int{6, 3}, d.Shape())
		got, err := d.Array()
		if err != nil {
			return err
		}
		assert.Equal(t, arr, got)
		return nil
	})
	require.NoError(t, err)
}
