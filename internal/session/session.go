// Package session loads Kubernetes credentials and verifies them against the
// API server before any check runs.
package session

import (
	"context"
	"fmt"

	authenticationv1 "k8s.io/api/authentication/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Options selects the credentials to load.
type Options struct {
	// Kubeconfig is an explicit kubeconfig path. When empty the in-cluster
	// config is tried first, then the default loading rules.
	Kubeconfig string
	// Context overrides the kubeconfig's current context.
	Context string
	// Namespace overrides the context's namespace.
	Namespace string
	// UserAgent is set on API requests when non-empty.
	UserAgent string
}

// Session is an authenticated handle to the API server.
type Session struct {
	Config    *rest.Config
	Client    client.Client
	Namespace string
	// User is the authenticated user name, empty when the server does
	// not support self subject reviews.
	User string
}

// AuthenticationError reports that credentials could not be loaded or were
// rejected. It is fatal and surfaced before any check runs.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string { return e.Err.Error() }

func (e *AuthenticationError) Unwrap() error { return e.Err }

// Scheme returns the scheme used for session clients.
func Scheme() *runtime.Scheme {
	s := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(s))
	return s
}

// Load resolves credentials, builds a client and confirms the server accepts
// them. Every failure is returned as *AuthenticationError.
func Load(ctx context.Context, opts Options) (*Session, error) {
	cfg, namespace, err := RESTConfig(opts)
	if err != nil {
		return nil, err
	}

	c, err := client.New(cfg, client.Options{Scheme: Scheme()})
	if err != nil {
		return nil, &AuthenticationError{Err: fmt.Errorf("creating client: %w", err)}
	}

	user, err := whoAmI(ctx, cfg)
	if err != nil {
		return nil, &AuthenticationError{Err: err}
	}
	log.FromContext(ctx).V(1).Info("Authenticated", "host", cfg.Host, "user", user, "namespace", namespace)

	return &Session{Config: cfg, Client: c, Namespace: namespace, User: user}, nil
}

// RESTConfig resolves the client config and namespace without contacting
// the server.
func RESTConfig(opts Options) (*rest.Config, string, error) {
	if opts.Kubeconfig == "" && opts.Context == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			ns := opts.Namespace
			if ns == "" {
				ns, _, _ = loader(opts).Namespace()
			}
			return withUserAgent(cfg, opts), defaultNamespace(ns), nil
		}
	}

	cc := loader(opts)
	cfg, err := cc.ClientConfig()
	if err != nil {
		return nil, "", &AuthenticationError{Err: fmt.Errorf("loading kubeconfig: %w", err)}
	}
	ns := opts.Namespace
	if ns == "" {
		ns, _, err = cc.Namespace()
		if err != nil {
			return nil, "", &AuthenticationError{Err: fmt.Errorf("resolving namespace: %w", err)}
		}
	}
	return withUserAgent(cfg, opts), defaultNamespace(ns), nil
}

func loader(opts Options) clientcmd.ClientConfig {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	rules.ExplicitPath = opts.Kubeconfig
	overrides := &clientcmd.ConfigOverrides{CurrentContext: opts.Context}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)
}

func withUserAgent(cfg *rest.Config, opts Options) *rest.Config {
	if opts.UserAgent != "" {
		cfg.UserAgent = opts.UserAgent
	}
	return cfg
}

func defaultNamespace(ns string) string {
	if ns == "" {
		return metav1.NamespaceDefault
	}
	return ns
}

// whoAmI submits a SelfSubjectReview. Servers that do not serve the API
// are accepted without a user name; rejected credentials are not.
func whoAmI(ctx context.Context, cfg *rest.Config) (string, error) {
	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return "", fmt.Errorf("creating clientset: %w", err)
	}
	review, err := cs.AuthenticationV1().SelfSubjectReviews().Create(ctx, &authenticationv1.SelfSubjectReview{}, metav1.CreateOptions{})
	if apierrors.IsNotFound(err) || apierrors.IsForbidden(err) || apierrors.IsMethodNotSupported(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return review.Status.UserInfo.Username, nil
}
