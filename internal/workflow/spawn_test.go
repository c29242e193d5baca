package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/paritytech/zombienet-go/internal/activity"
	"github.com/paritytech/zombienet-go/internal/model"
)

var errAliceNeverReady = errors.New("node did not become ready")

type NetworkSpawnWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func TestNetworkSpawnWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(NetworkSpawnWorkflowTestSuite))
}

func (s *NetworkSpawnWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *NetworkSpawnWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func twoNodeSpec() model.NetworkSpec {
	return model.NetworkSpec{
		Relaychain: model.RelaychainSpec{
			ChainName: "rococo-local",
			Nodes: []model.NodeSpec{
				{Name: "alice", Role: model.RoleValidator, Command: "polkadot", BasePath: "/tmp/alice", Bootnode: true},
				{Name: "bob", Role: model.RoleValidator, Command: "polkadot", BasePath: "/tmp/bob", Bootnodes: []string{"alice"}},
			},
		},
		Global: model.GlobalSettings{SpawnConcurrency: 10, NodeSpawnTimeoutSecs: 60, TearDownOnFailure: true},
	}
}

func (s *NetworkSpawnWorkflowTestSuite) TestAllNodesReadySucceeds() {
	s.env.OnActivity("MaterializeNodeFiles", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("SpawnNode", mock.Anything, mock.Anything).
		Return(&activity.SpawnNodeResult{Handle: "pid:123"}, nil)
	s.env.OnActivity("WaitNodeReady", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("CaptureMultiaddress", mock.Anything, mock.Anything).
		Return("/ip4/127.0.0.1/tcp/30333/p2p/12D3KooWtest", nil)

	s.env.ExecuteWorkflow(NetworkSpawnWorkflow, SpawnNetworkParams{
		Network:            twoNodeSpec(),
		RelayChainSpecPath: "/tmp/chain.json",
		LocalIP:            "127.0.0.1",
	})

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result SpawnResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Len(result.Nodes, 2)
	s.Empty(result.Failures)
	s.Equal("/ip4/127.0.0.1/tcp/30333/p2p/12D3KooWtest", result.Nodes["alice"].Multiaddr)
}

func (s *NetworkSpawnWorkflowTestSuite) TestContainerizedProviderStagesFilesBeforeReadinessWait() {
	s.env.OnActivity("MaterializeNodeFiles", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("SpawnNode", mock.Anything, mock.Anything).
		Return(&activity.SpawnNodeResult{Handle: "container:abc"}, nil)
	s.env.OnActivity("StageContainerFiles", mock.Anything, activity.StageContainerFilesParams{
		Handle:   "container:abc",
		BasePath: "/tmp/alice",
	}).Return(nil).Once()
	s.env.OnActivity("StageContainerFiles", mock.Anything, activity.StageContainerFilesParams{
		Handle:   "container:abc",
		BasePath: "/tmp/bob",
	}).Return(nil).Once()
	s.env.OnActivity("WaitNodeReady", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("CaptureMultiaddress", mock.Anything, mock.Anything).
		Return("/ip4/127.0.0.1/tcp/30333/p2p/12D3KooWtest", nil)

	s.env.ExecuteWorkflow(NetworkSpawnWorkflow, SpawnNetworkParams{
		Network:            twoNodeSpec(),
		RelayChainSpecPath: "/tmp/chain.json",
		LocalIP:            "127.0.0.1",
		Containerized:      true,
	})

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *NetworkSpawnWorkflowTestSuite) TestBootnodeFailureFailsDependentAndTearsDown() {
	s.env.OnActivity("MaterializeNodeFiles", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("SpawnNode", mock.Anything, mock.Anything).
		Return(&activity.SpawnNodeResult{Handle: "pid:1"}, nil)
	s.env.OnActivity("WaitNodeReady", mock.Anything, mock.Anything).
		Return(errAliceNeverReady)
	s.env.OnActivity("DestroyNode", mock.Anything, mock.Anything).Return(nil)

	s.env.ExecuteWorkflow(NetworkSpawnWorkflow, SpawnNetworkParams{
		Network:            twoNodeSpec(),
		RelayChainSpecPath: "/tmp/chain.json",
		LocalIP:            "127.0.0.1",
	})

	s.True(s.env.IsWorkflowCompleted())
	err := s.env.GetWorkflowError()
	s.Error(err)

	// A workflow that returns an error delivers no result value; the failed
	// node names are listed in the error itself.
	s.ErrorContains(err, "alice")
	s.ErrorContains(err, "bob")
}
